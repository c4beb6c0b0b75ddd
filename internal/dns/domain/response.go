package domain

// WarningNoRecursion is surfaced when the server clears the RA bit.
const WarningNoRecursion = "server does not support recursive queries"

// DNSResponse is the structured result of decoding one response message.
// Authority records are walked to keep the cursor aligned but not reported.
type DNSResponse struct {
	Header     Header
	Answers    []RecordOutcome
	Additional []RecordOutcome
	Warnings   []string
}

// Authoritative reports whether the AA bit was set.
func (resp DNSResponse) Authoritative() bool {
	return resp.Header.Flags.AA()
}

// AuthLabel returns "auth" or "nonauth" depending on the AA bit.
func (resp DNSResponse) AuthLabel() string {
	if resp.Authoritative() {
		return "auth"
	}
	return "nonauth"
}

// HasAuthority reports whether the authority section was present.
func (resp DNSResponse) HasAuthority() bool {
	return resp.Header.NSCount > 0
}

// NotFound reports whether the server returned no answers.
func (resp DNSResponse) NotFound() bool {
	return resp.Header.ANCount == 0
}

// AnswerCount returns the number of answer records in the response.
func (resp DNSResponse) AnswerCount() int {
	return len(resp.Answers)
}

// AdditionalCount returns the number of additional records in the response.
func (resp DNSResponse) AdditionalCount() int {
	return len(resp.Additional)
}
