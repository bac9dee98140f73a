package core

import "fmt"

// ClientInfo is the (id, username) pair listed to operators.
type ClientInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// JoinNotice is broadcast after a client registers.
func JoinNotice(username string) string {
	return fmt.Sprintf("%s has connected", username)
}

// LeaveNotice is broadcast after a client is removed.
func LeaveNotice(username string) string {
	return fmt.Sprintf("%s has disconnected", username)
}
