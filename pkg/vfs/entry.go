package vfs

// EntryKind .
type EntryKind uint8

// Entry kinds.
const (
	EntryFile EntryKind = iota
	EntryDir
)

// Entry is one synthesized file in the virtual directory.
type Entry struct {
	Kind EntryKind
	Name string
	Size uint64

	// Frame is the timestamp of the source frame backing an image
	// entry. Gap-fill entries share the timestamp of the next
	// arriving source frame.
	Frame    int64
	HasFrame bool
}
