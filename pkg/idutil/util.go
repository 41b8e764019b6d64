package idutil

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	once sync.Once
	node *snowflake.Node
)

// Init sets the node number of this process. Processes sharing a database must
// use different numbers. Calling it more than once has no effect.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})

	return err
}

func Generate() snowflake.ID {
	if err := Init(0); err != nil {
		panic(err)
	}

	return node.Generate()
}

// RandomnessRequestID returns the identifier sent to the randomness oracle for
// the given on-chain lottery index.
func RandomnessRequestID(onchainID uint64) string {
	return fmt.Sprintf("vrf_%d_%s", onchainID, Generate().String())
}
