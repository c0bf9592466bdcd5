package rules

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Snapshot serialises the rule as applied and returns its blake2b-256 digest.
func Snapshot(r Rule) ([]byte, string, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, "", fmt.Errorf("rules: snapshot: %w", err)
	}
	sum := blake2b.Sum256(payload)
	return payload, hex.EncodeToString(sum[:]), nil
}

// NewUsageLog builds the usage-log row for one application of r.
func NewUsageLog(r Rule, companyID int64, sourceType, sourceID, triggerEvent string, entryID *int64, applyErr error) (UsageLog, error) {
	payload, digest, err := Snapshot(r)
	if err != nil {
		return UsageLog{}, err
	}
	log := UsageLog{
		RuleID:         r.ID,
		JournalEntryID: entryID,
		CompanyID:      companyID,
		SourceType:     sourceType,
		SourceID:       sourceID,
		TriggerEvent:   triggerEvent,
		Snapshot:       payload,
		Digest:         digest,
		Success:        applyErr == nil,
	}
	if applyErr != nil {
		log.ErrorMessage = applyErr.Error()
	}
	return log, nil
}
