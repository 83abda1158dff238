package models

type Card struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	// Number is only populated right after issuance; storage keeps a hash.
	Number     string `json:"number,omitempty"`
	Last4      string `json:"last4"`
	ExpiryYYMM string `json:"expiry_yymm"`
	PINHash    []byte `json:"-"`
	Blocked    bool   `json:"blocked"`
}

type IssueCard struct {
	PIN int `json:"pin"`
}
