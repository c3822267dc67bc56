package xid

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAtFormat(t *testing.T) {
	at := time.UnixMilli(1760700000123)
	id := NewAt("BILL", at)

	require.Regexp(t, regexp.MustCompile(`^BILL-1760700000123-[0-9A-Z]{4}$`), id)
}

func TestNewIsUnlikelyToRepeat(t *testing.T) {
	at := time.Now()
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		seen[NewAt("INV", at)] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}
