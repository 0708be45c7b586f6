package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Actor string

const (
	ActorAI    Actor = "ai"
	ActorHuman Actor = "human"
)

type EventType string

const (
	EventRoundCompleted EventType = "round_completed"
	EventRoundFailed    EventType = "round_failed"
	EventOverride       EventType = "override"
	EventConfirm        EventType = "confirm"
	EventFinalize       EventType = "finalize"
	EventReopen         EventType = "reopen"
)

const genesisHash = "genesis"

// AuditEntry is one append-only transition of a FinalGrade.
// Status is the status the grade holds after the entry is applied.
type AuditEntry struct {
	ID           uuid.UUID   `json:"id"`
	SubmissionID uuid.UUID   `json:"submission_id"`
	QuestionID   uuid.UUID   `json:"question_id"`
	Seq          int64       `json:"seq"`
	Timestamp    time.Time   `json:"timestamp"`
	Actor        Actor       `json:"actor"`
	Event        EventType   `json:"event"`
	FieldChanged string      `json:"field_changed"`
	OldValue     string      `json:"old_value"`
	NewValue     string      `json:"new_value"`
	Reason       string      `json:"reason"`
	Status       GradeStatus `json:"status"`
	Score        *float64    `json:"score,omitempty"`
	MaxScore     float64     `json:"max_score"`
	Confidence   float64     `json:"confidence"`
	RoundID      *uuid.UUID  `json:"round_id,omitempty"`
	PrevHash     string      `json:"prev_hash"`
	Hash         string      `json:"hash"`
}

func (e AuditEntry) Key() GradeKey {
	return GradeKey{SubmissionID: e.SubmissionID, QuestionID: e.QuestionID}
}

// Seal links the entry to its predecessor and computes its hash.
func (e *AuditEntry) Seal(prevHash string) {
	if prevHash == "" {
		prevHash = genesisHash
	}
	e.PrevHash = prevHash
	e.Hash = e.digest()
}

func (e AuditEntry) digest() string {
	score := ""
	if e.Score != nil {
		score = FormatScore(*e.Score)
	}
	payload, _ := json.Marshal([]string{
		e.SubmissionID.String(), e.QuestionID.String(), fmt.Sprint(e.Seq),
		e.Timestamp.UTC().Format(time.RFC3339Nano), string(e.Actor), string(e.Event),
		e.FieldChanged, e.OldValue, e.NewValue, e.Reason, string(e.Status), score,
	})
	h := sha256.New()
	h.Write([]byte(e.PrevHash))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyChain checks sequence numbers and hash links of one grade's entries.
func VerifyChain(entries []AuditEntry) error {
	prev := genesisHash
	for i, e := range entries {
		if e.Seq != int64(i+1) {
			return fmt.Errorf("audit entry %d has seq %d", i+1, e.Seq)
		}
		if e.PrevHash != prev {
			return fmt.Errorf("audit entry %d is not linked to its predecessor", e.Seq)
		}
		if e.digest() != e.Hash {
			return fmt.Errorf("audit entry %d hash mismatch", e.Seq)
		}
		prev = e.Hash
	}
	return nil
}

func LastHash(entries []AuditEntry) string {
	if len(entries) == 0 {
		return genesisHash
	}
	return entries[len(entries)-1].Hash
}

func FormatScore(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func FormatOptionalScore(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatScore(*v)
}
