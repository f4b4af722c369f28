package types

// Clock is the sysvar view of time handed to programs.
type Clock struct {
	Slot          uint64
	UnixTimestamp int64
}
