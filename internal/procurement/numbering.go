package procurement

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator issues identifiers for drafts and their lines.
type IDGenerator interface {
	LineID() string
	PONumber(at time.Time) string
}

type uuidGenerator struct{}

// NewUUIDGenerator returns the default generator backed by random UUIDs.
func NewUUIDGenerator() IDGenerator {
	return uuidGenerator{}
}

func (uuidGenerator) LineID() string {
	return uuid.NewString()
}

// PONumber renders PO-<yyyymm>-<8 hex>. Uniqueness is enforced by the store.
func (uuidGenerator) PONumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("PO-%04d%02d-%s", at.Year(), int(at.Month()), suffix)
}
