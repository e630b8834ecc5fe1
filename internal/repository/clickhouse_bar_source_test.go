package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domrepo "PatternPull/internal/domain/repository"
)

func TestTableForTFUsesConfiguredDatabase(t *testing.T) {
	s := &CHBarSource{database: "warehouse"}

	table, err := s.tableForTF(domrepo.TF1s)
	require.NoError(t, err)
	assert.Equal(t, "warehouse.bars_1s", table)

	table, err = s.tableForTF(domrepo.TF1m)
	require.NoError(t, err)
	assert.Equal(t, "warehouse.bars_1m", table)

	// 5m reads fold onto the minute table.
	table, err = s.tableForTF(domrepo.TF5m)
	require.NoError(t, err)
	assert.Equal(t, "warehouse.bars_1m", table)
}

func TestTableForTFRejectsUnknownTimeframe(t *testing.T) {
	s := &CHBarSource{database: "warehouse"}

	_, err := s.tableForTF(domrepo.Timeframe("2h"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported timeframe")
}
