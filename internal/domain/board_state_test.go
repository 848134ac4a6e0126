package domain_test

import (
	"testing"

	"collaborative-whiteboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardState_PayloadRoundTrip(t *testing.T) {
	state := &domain.BoardState{}
	payload := domain.BoardPayload{"10:20": "#FF0000", "11:21": "#0000FF"}

	require.NoError(t, state.SetPayload(payload))
	parsed, err := state.ParsePayload()
	require.NoError(t, err)
	assert.Equal(t, payload, parsed)
}

func TestBoardState_ParsePayload_EmptyVariants(t *testing.T) {
	// Data 为空、"null" 或 "{}" 都解析为空 map，不报错
	for _, data := range []string{"", "null", domain.DefaultBoardPayload} {
		state := &domain.BoardState{Data: data}
		parsed, err := state.ParsePayload()
		require.NoError(t, err, "data=%q", data)
		assert.NotNil(t, parsed)
		assert.Empty(t, parsed)
	}

	// 损坏的 JSON 报错
	state := &domain.BoardState{Data: "{broken"}
	_, err := state.ParsePayload()
	assert.Error(t, err)
}

func TestBoardState_SetPayload_EmptyUsesDefault(t *testing.T) {
	state := &domain.BoardState{}
	require.NoError(t, state.SetPayload(nil))
	assert.Equal(t, domain.DefaultBoardPayload, state.Data)
}

func TestPatch_Validate(t *testing.T) {
	valid := domain.Patch{BoardID: 1, Kind: "draw", Cell: "1:2", Color: "#fff"}
	assert.NoError(t, valid.Validate())

	erase := domain.Patch{BoardID: 1, Kind: "erase", Cell: "1:2"}
	assert.NoError(t, erase.Validate())

	missingBoard := domain.Patch{Kind: "draw", Cell: "1:2"}
	assert.Error(t, missingBoard.Validate())

	badKind := domain.Patch{BoardID: 1, Kind: "smudge", Cell: "1:2"}
	assert.Error(t, badKind.Validate())

	missingCell := domain.Patch{BoardID: 1, Kind: "draw"}
	assert.Error(t, missingCell.Validate())
}
