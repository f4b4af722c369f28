package governance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccrueRewardsSelector(t *testing.T) {
	require.Equal(t, "c5bc36203f2247d7", AccrueRewards.Selector().String())
	require.Equal(t, Discriminator("accrue_rewards"), Discriminator("accrue_rewards"))
	require.Equal(t, AccrueRewards.Selector(), Discriminator("accrue_rewards"))
	require.NotEqual(t, Discriminator("accrue_rewards"), Discriminator("claim_rewards"))
}

func TestParseSelector(t *testing.T) {
	sel := AccrueRewards.Selector()

	m, ok := ParseSelector(sel[:])
	require.True(t, ok)
	require.Equal(t, AccrueRewards, m)

	_, ok = ParseSelector(sel[:4])
	require.False(t, ok)

	other := Discriminator("claim_rewards")
	_, ok = ParseSelector(other[:])
	require.False(t, ok)
}

func TestSelectorTableRejectsCollisions(t *testing.T) {
	_, err := buildSelectorTable(map[RemoteMethod]string{
		AccrueRewards:    "accrue_rewards",
		RemoteMethod(99): "accrue_rewards",
	})
	require.Error(t, err)

	for _, m := range RemoteMethods() {
		require.NotPanics(t, func() { m.Selector() })
	}
	require.Panics(t, func() { RemoteMethod(99).Selector() })
}
