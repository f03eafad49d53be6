package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCharacterSaveRoundtrip(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	_, err := s.LoadCharacter(ctx, "0xAAA")
	require.ErrorIs(t, err, ErrMissing)

	save := &CharacterSave{
		Name: "Thorn", Level: 7, XP: 4200, RaceID: "human", ClassID: "warrior",
		Gender: "male", Zone: "wild-meadow", X: 12.5, Y: 40.25, Kills: 13,
		CompletedQuests:   []string{"first-blood"},
		LearnedTechniques: []string{"strike", "rend"},
		Professions:       []string{"mining"},
		CharacterTokenID:  42,
	}
	s.SaveCharacter("0xAAA", save)

	got, err := s.LoadCharacter(ctx, "0xaaa") // case-insensitive key
	require.NoError(t, err)
	require.Equal(t, save.Name, got.Name)
	require.Equal(t, save.Level, got.Level)
	require.Equal(t, save.XP, got.XP)
	require.Equal(t, save.X, got.X)
	require.Equal(t, save.LearnedTechniques, got.LearnedTechniques)
	require.EqualValues(t, 42, got.CharacterTokenID)
}

func TestDiaryCapAndOrder(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		s.AppendDiary("0xBBB", &DiaryEntry{
			ID:       fmt.Sprintf("e%d", i),
			Action:   "gather",
			Headline: fmt.Sprintf("entry %d", i),
		})
	}

	entries := s.Diary(ctx, "0xbbb", 500)
	require.Len(t, entries, 200) // capped
	require.Equal(t, "e249", entries[0].ID) // newest first
	require.Equal(t, "e50", entries[199].ID)
}

func TestAgentConfigRoundtrip(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	cfg := &AgentConfig{Enabled: true, Focus: "gathering", Strategy: "balanced", ZoneID: "wild-meadow", EntityID: "player-1"}
	s.SaveAgentConfig("0xCCC", cfg)

	got, err := s.LoadAgentConfig(ctx, "0xccc")
	require.NoError(t, err)
	require.True(t, got.Enabled)
	require.Equal(t, "gathering", got.Focus)
	require.False(t, got.LastUpdated.IsZero())
}

func TestCustodialKeyRoundtrip(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	_, err := s.LoadCustodialKey(ctx, "0xDDD")
	require.ErrorIs(t, err, ErrMissing)

	s.SaveCustodialKey("0xDDD", []byte(`{"crypto":{}}`))
	blob, err := s.LoadCustodialKey(ctx, "0xddd")
	require.NoError(t, err)
	require.JSONEq(t, `{"crypto":{}}`, string(blob))
}

func TestMemoryLTrim(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.LPush(ctx, "l", "a", "b", "c")) // list: c b a
	vals, err := m.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b", "a"}, vals)

	require.NoError(t, m.LTrim(ctx, "l", 0, 1))
	vals, err = m.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b"}, vals)
}
