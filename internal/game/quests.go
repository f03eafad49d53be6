package game

import (
	"context"
	"fmt"

	"github.com/emberwild/shard/internal/catalog"
	"github.com/emberwild/shard/internal/world"
)

// Quest requirement kinds.
const (
	questKills   = "kills"
	questCollect = "collect"
)

// QuestDef is one completable quest. Collect quests consume the turned-in
// items; kill quests check the character's lifetime kill counter.
type QuestDef struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Kind         string `json:"kind"`
	RequiredQty  int64  `json:"requiredQty"`
	TokenID      int64  `json:"tokenId,omitempty"` // collect quests
	RewardCopper int64  `json:"rewardCopper"`
	RewardXP     int64  `json:"rewardXp"`
}

var questTable = []QuestDef{
	{ID: "cull-the-pack", Name: "Cull the Pack", Kind: questKills, RequiredQty: 5,
		Description: "Thin the predators stalking the meadow.", RewardCopper: 500, RewardXP: 120},
	{ID: "lavender-for-the-lab", Name: "Lavender for the Lab", Kind: questCollect,
		TokenID: catalog.TokLavender, RequiredQty: 3,
		Description: "Bring the herbalist fresh lavender.", RewardCopper: 300, RewardXP: 80},
	{ID: "iron-in-the-hills", Name: "Iron in the Hills", Kind: questCollect,
		TokenID: catalog.TokIronOre, RequiredQty: 5,
		Description: "Haul iron ore down from the ashen slopes.", RewardCopper: 800, RewardXP: 200},
}

// Quests lists the quest table with per-character completion flags.
func (s *Service) Quests(ctx context.Context, wallet, zoneID, entityID string) ([]map[string]any, error) {
	var out []map[string]any
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		for _, q := range questTable {
			done := false
			for _, id := range e.CompletedQuests {
				if id == q.ID {
					done = true
					break
				}
			}
			out = append(out, map[string]any{"quest": q, "completed": done})
		}
		return nil
	})
	return out, err
}

// QuestReward reports a completed turn-in.
type QuestReward struct {
	QuestID      string `json:"questId"`
	RewardCopper int64  `json:"rewardCopper"`
	RewardXP     int64  `json:"rewardXp"`
	Level        int    `json:"level"`
}

// CompleteQuest validates the requirement at a quest giver and pays out.
// Collect quests burn the turned-in items before minting the reward.
func (s *Service) CompleteQuest(ctx context.Context, wallet, zoneID, entityID, questID string) (*QuestReward, error) {
	var reward *QuestReward
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		var quest *QuestDef
		for i := range questTable {
			if questTable[i].ID == questID {
				quest = &questTable[i]
				break
			}
		}
		if quest == nil {
			return errNotFound("unknown quest %q", questID)
		}
		for _, id := range e.CompletedQuests {
			if id == questID {
				return errRule("%s already completed", quest.Name)
			}
		}
		if giver := nearestOfType(z, e, world.TypeQuestGiver, interactRange); giver == nil {
			return errRule("no quest giver in range")
		}

		switch quest.Kind {
		case questKills:
			if e.Kills < quest.RequiredQty {
				return errRule("%d more kills needed", quest.RequiredQty-e.Kills)
			}
		case questCollect:
			bal, err := s.Chain.ItemBalance(ctx, wallet, quest.TokenID)
			if err != nil {
				return errLedger("quest item balance", err)
			}
			if bal < quest.RequiredQty {
				return errInsufficient("need %d, have %d", quest.RequiredQty, bal)
			}
			if _, err := s.Chain.BurnItem(ctx, wallet, quest.TokenID, quest.RequiredQty); err != nil {
				return errLedger("quest turn-in", err)
			}
		}

		if _, err := s.Chain.MintGold(ctx, wallet, quest.RewardCopper); err != nil {
			return errLedger("quest reward", err)
		}
		e.CompletedQuests = append(e.CompletedQuests, questID)
		s.Runtime.GrantXP(ctx, z, e, quest.RewardXP)

		s.diary(wallet, z, e, "quest", fmt.Sprintf("%s completed %s", e.Name, quest.Name),
			map[string]any{"questId": questID})
		s.persist(z, e)

		reward = &QuestReward{QuestID: questID, RewardCopper: quest.RewardCopper, RewardXP: quest.RewardXP, Level: e.Level}
		return nil
	})
	return reward, err
}
