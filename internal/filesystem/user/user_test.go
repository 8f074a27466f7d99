package user

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestRoot(t *testing.T) {
	r := Root()
	assert.Equal(t, r.UserId, uint32(0))
	assert.Equal(t, r.GroupId, uint32(0))
	assert.Equal(t, r.GetUserString(), "root 0 0")
}

func TestNewUser(t *testing.T) {
	u := NewUser("alice", 1000, 1001)
	assert.Equal(t, u.GetUserString(), "alice 1000 1001")
}
