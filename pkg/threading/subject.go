package threading

// SimplifySubject strips reply markers from a subject line and reports
// whether any were present. It consumes leading spaces and any run of
// "Re:", "Re[n]:" or "Re(n):" prefixes (case-insensitive on the two
// letters), trims trailing control characters, and collapses a literal
// "(no subject)" to the empty string. The transform is idempotent:
// applying it to its own output changes nothing.
func SimplifySubject(raw string) (subject string, isReply bool) {
	start, end := 0, len(raw)

	for done := false; !done; {
		done = true

		for start < end && raw[start] == ' ' {
			start++
		}

		if start+2 < end && (raw[start] == 'r' || raw[start] == 'R') && (raw[start+1] == 'e' || raw[start+1] == 'E') {
			switch raw[start+2] {
			case ':':
				start += 3
				isReply = true
				done = false
			case '[', '(':
				// "Re[2]:" or "Re(2):"; digits optional
				i := start + 3
				for i < end && raw[i] >= '0' && raw[i] <= '9' {
					i++
				}
				if i+1 < end && (raw[i] == ']' || raw[i] == ')') && raw[i+1] == ':' {
					start = i + 2
					isReply = true
					done = false
				}
			}
		}
	}

	for end > start && raw[end-1] < ' ' {
		end--
	}

	subject = raw
	if start != 0 || end != len(raw) {
		subject = raw[start:end]
	}
	if subject == "(no subject)" {
		subject = ""
	}
	return subject, isReply
}
