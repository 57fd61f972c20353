// Package shards owns the worker fleet: shard-count computation, worker
// process supervision, and the enumerated RPC contract the manager uses to
// run operations across every shard.
package shards

import (
	"errors"
	"math"
	"strconv"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"
)

// GuildsPerShard is the fleet's own guilds-per-shard budget, used to compute
// the minimum shard count the fleet will run with regardless of what an
// external coordinator assigns.
const GuildsPerShard = 1000

// discordGuildsPerShard is the budget Discord's gateway recommendation
// assumes.
const discordGuildsPerShard = 1000

// ErrFleetStarting marks broadcast failures caused by workers that haven't
// finished starting, so callers can answer "still starting" instead of a
// generic failure.
var ErrFleetStarting = errors.New("shards are still starting")

// ErrNoShards is returned when a fleet is started with an empty shard list.
var ErrNoShards = errors.New("no shards assigned to this process")

// Gateway is the slice of the session API shard-count computation needs.
type Gateway interface {
	GatewayBot(options ...dg.RequestOption) (*dg.GatewayBotResponse, error)
}

// RecommendedShardCount asks the platform for its recommended shard count
// and rescales it to the given guilds-per-shard budget, rounding up.
func RecommendedShardCount(g Gateway, guildsPerShard int) (int, error) {
	resp, err := g.GatewayBot()
	if err != nil {
		return 0, errutil.With(err)
	}

	count := int(math.Ceil(float64(resp.Shards) * float64(discordGuildsPerShard) / float64(guildsPerShard)))
	if count < 1 {
		count = 1
	}
	return count, nil
}

// RequiredShardCount is the minimum fleet size: the recommended count at the
// fixed GuildsPerShard budget.
func RequiredShardCount(g Gateway) (int, error) {
	return RecommendedShardCount(g, GuildsPerShard)
}

// ShardID computes which shard a guild belongs to using Discord's sharding
// formula: (snowflake >> 22) % shardCount.
func ShardID(guildID string, shardCount int) (int, error) {
	if shardCount <= 0 {
		return 0, errutil.With(errors.New("shard count must be positive"))
	}

	snowflake, err := strconv.ParseUint(guildID, 10, 64)
	if err != nil {
		return 0, errutil.With(err)
	}

	return int((snowflake >> 22) % uint64(shardCount)), nil
}
