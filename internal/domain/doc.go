// Package domain provides the record types shared by every electrooms package.
//
// This package contains type definitions and small pure helpers only. All
// other internal packages import domain; domain imports nothing internal.
//
// Key design constraints:
//   - Rounds and room indices are 0-based everywhere; only naming adds 1
//   - Room.TelegramID == 0 means "chat not provisioned" (the provisioning marker)
//   - The preelection room is the room with Round == PreelectionRound
//   - All JSON tags use snake_case
package domain
