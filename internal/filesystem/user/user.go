package user

import (
	"fmt"
)

// User is the owner recorded in new inodes.
type User struct {
	Username string
	UserId   uint32
	GroupId  uint32
}

func NewUser(username string, userId, groupId uint32) *User {
	return &User{
		Username: username,
		UserId:   userId,
		GroupId:  groupId,
	}
}

// Root is the owner the reference tools write for every inode.
func Root() User {
	return User{Username: "root"}
}

func (u User) GetUserString() string {
	return fmt.Sprintf("%s %d %d", u.Username, u.UserId, u.GroupId)
}
