package threading_test

import (
	"testing"

	"newsdb/pkg/threading"
)

func TestSimplifySubject(t *testing.T) {
	cases := []struct {
		raw   string
		subj  string
		reply bool
	}{
		{"", "", false},
		{"Hello", "Hello", false},
		{"Re: Hello", "Hello", true},
		{"RE: Hello", "Hello", true},
		{"re: hello", "hello", true},
		{"rE: hello", "hello", true},
		{"Re:Hello", "Hello", true},
		{"Re: Re: Hello", "Hello", true},
		{"Re:Re:Re:deep", "deep", true},
		{"Re[2]: patch", "patch", true},
		{"Re(3): patch", "patch", true},
		{"Re[]: patch", "patch", true},
		{"  Re:  Re[2]:  spaced", "spaced", true},
		{"Re:", "", true},
		{"Re", "Re", false},
		{"R", "R", false},
		{"Reply: soon", "Reply: soon", false},
		{"Re[a]: nope", "Re[a]: nope", false},
		// the closer is not matched against the opener
		{"Re[2): crossed", "crossed", true},
		{"   leading", "leading", false},
		{"trailing  ", "trailing  ", false},
		{"ctl\r\n", "ctl", false},
		{"Re: ctl\t\r", "ctl", true},
		{"(no subject)", "", false},
		{"Re: (no subject)", "", true},
		{"Regards: all", "Regards: all", false},
	}

	for _, c := range cases {
		subj, reply := threading.SimplifySubject(c.raw)
		if subj != c.subj || reply != c.reply {
			t.Errorf("SimplifySubject(%q) = (%q, %v), want (%q, %v)",
				c.raw, subj, reply, c.subj, c.reply)
		}
	}
}

func TestSimplifySubjectIdempotent(t *testing.T) {
	inputs := []string{
		"", "Hello", "Re: Hello", "Re[2]: patch", "  Re: x ",
		"(no subject)", "Re: (no subject)", "Re:Re: deep", "trailing \r",
	}
	for _, raw := range inputs {
		once, _ := threading.SimplifySubject(raw)
		twice, _ := threading.SimplifySubject(once)
		if once != twice {
			t.Errorf("not idempotent on %q: first %q, second %q", raw, once, twice)
		}
	}
}
