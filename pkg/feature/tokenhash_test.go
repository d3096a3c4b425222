package feature

import "testing"

// Golden values computed from the bit-exact reference algorithm in
// spec.md §6; any change to TokenHash's output for these inputs breaks
// on-disk compatibility with existing class files.
func Test_TokenHash_Matches_Golden_Fixtures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		tok  string
		want uint32
	}{
		{"the", 817404185},
		{"quick", 287643697},
		{"brown", 227514523},
		{"fox", 1972955536},
		{"jumps", 3655965303},
		{"over", 380745508},
		{"lazy", 3481060802},
		{"dog", 2980171883},
		{"hello", 136892443},
		{"world", 3426729883},
		{"a", 3003890443},
		{"osbf", 842240973},
		{"bayes", 745900526},
		{"spam", 3653397416},
		{"ham", 717781670},
		{"classifier", 7033786},
		{"token", 357674307},
		{"hash", 2476887635},
		{"bucket", 3320916371},
		{"feature", 839830180},
		{"", 0},
		{"x", 63439808},
		{"golang", 1567709967},
		{"microgroom", 1386240199},
		{"database", 4210217069},
	}

	for _, c := range cases {
		c := c
		t.Run(c.tok, func(t *testing.T) {
			t.Parallel()

			if got := TokenHash([]byte(c.tok)); got != c.want {
				t.Errorf("TokenHash(%q) = %d, want %d", c.tok, got, c.want)
			}
		})
	}
}

func Test_TokenHash_Is_Deterministic(t *testing.T) {
	t.Parallel()

	tok := []byte("repeat-me")
	first := TokenHash(tok)

	for i := 0; i < 5; i++ {
		if got := TokenHash(tok); got != first {
			t.Fatalf("TokenHash nondeterministic: got %d, want %d", got, first)
		}
	}
}
