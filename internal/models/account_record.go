package models

// AccountRecord is one row of the durable account snapshot table: the
// current state of a live account, upserted as the account changes. It is
// distinct from the audit log and exists so startup can reload balances
// without replaying the whole history.
type AccountRecord struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Username     string   `json:"username,omitempty"`
	Salt         []byte   `json:"-"`
	PasswordHash []byte   `json:"-"`
	Cash         int64    `json:"cash"`
	Properties   []string `json:"properties,omitempty"`
	IsBanker     bool     `json:"is_banker"`
}
