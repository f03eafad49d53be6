package techniques

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/emberwild/shard/internal/catalog"
	"github.com/stretchr/testify/require"
)

const testWallet = "0xabc1234567890def1234567890abcdef12345678"

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(testWallet, "mage", TierSignature)
	b := Generate(testWallet, "mage", TierSignature)

	aj, err := json.Marshal(a)
	require.NoError(t, err)
	bj, err := json.Marshal(b)
	require.NoError(t, err)
	require.Equal(t, string(aj), string(bj), "same triple must be byte-identical")

	// Wallet case does not change the result.
	c := Generate("0xABC1234567890DEF1234567890ABCDEF12345678", "mage", TierSignature)
	cj, _ := json.Marshal(c)
	require.Equal(t, string(aj), string(cj))
}

func TestGenerateSignatureShape(t *testing.T) {
	tech := Generate(testWallet, "mage", TierSignature)

	require.Equal(t, "essence_signature_abc12345_mage", tech.ID)
	require.Equal(t, "rare", tech.QualityTier)
	require.Equal(t, SignatureLevel, tech.LevelRequired)
	require.Contains(t, []string{catalog.TechAttack, catalog.TechBuff, catalog.TechDebuff, catalog.TechHealing}, tech.Type)
	require.NotEmpty(t, tech.Name)
	require.NotEmpty(t, tech.Effects)
	require.Positive(t, tech.EssenceCost)
	require.Positive(t, tech.CooldownTicks)
}

func TestGenerateUltimateOutscalesSignature(t *testing.T) {
	ult := Generate(testWallet, "warrior", TierUltimate)
	require.Equal(t, "epic", ult.QualityTier)
	require.Equal(t, UltimateLevel, ult.LevelRequired)
	require.GreaterOrEqual(t, ult.EssenceCost, 40)
}

func TestArchetypeWeighting(t *testing.T) {
	// Attack should dominate mage generations across many wallets.
	attack := 0
	for i := 0; i < 200; i++ {
		tech := Generate(fmt.Sprintf("0x%040x", i), "mage", TierSignature)
		if tech.Type == catalog.TechAttack {
			attack++
		}
	}
	require.Greater(t, attack, 80, "attack should be the dominant mage archetype")
}

func TestDifferentTriplesDiffer(t *testing.T) {
	a := Generate(testWallet, "mage", TierSignature)
	b := Generate(testWallet, "warrior", TierSignature)
	c := Generate(testWallet, "mage", TierUltimate)
	require.NotEqual(t, a.ID, b.ID)
	require.NotEqual(t, a.ID, c.ID)
}

func TestRegistryResolvesGenerated(t *testing.T) {
	cat, err := catalog.Load("")
	require.NoError(t, err)
	reg := NewRegistry(cat)

	_, err = reg.Resolve("essence_signature_abc12345_mage")
	require.Error(t, err)

	gen := reg.EnsureGenerated(testWallet, "mage", TierSignature)
	got, err := reg.Resolve(gen.ID)
	require.NoError(t, err)
	require.Equal(t, gen, got)

	// Catalog-authored techniques still resolve.
	_, err = reg.Resolve("strike")
	require.NoError(t, err)
}
