// Package store provides SQLite-backed durable storage for elections, rooms
// and participants.
//
// The store is the single source of truth for "has this been done": the
// provisioning orchestrator never trusts in-memory state across invocations.
//
// # Critical Patterns
//
// Room uniqueness
//   - UNIQUE(election_id, round, room_index) constraint
//   - CreateRooms inserts with ON CONFLICT DO NOTHING and reads back the
//     stored row, so re-running allocation returns the existing rooms
//
// Provisioning marker
//   - rooms.telegram_id is NULL until the chat exists
//   - UpdateRoomTelegramID only moves NULL to a value, never back, and never
//     to a different value
//
// Idempotent delegation
//   - room_members is upserted on (room_id, account_name)
//   - Delegating a participant removes it from the preelection room and from
//     any other room of the same round
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
