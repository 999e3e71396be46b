package id

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// defaultNodeID is used when New is called before Init, e.g. in tests.
const defaultNodeID = 0

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID. Only the first call
// takes effect.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a new time-ordered int64 ID that is unique per node.
func New() int64 {
	_ = Init(defaultNodeID)
	return node.Generate().Int64()
}

// NewString returns New formatted with an optional prefix, e.g. "TICKET-".
func NewString(prefix string) string {
	return prefix + strconv.FormatInt(New(), 10)
}
