package memory_map

// Windows VirtualQueryEx state and protection values. Mirrored here so the
// translation can be exercised on any platform.
const (
	memCommit = 0x1000

	pageNoAccess         = 0x01
	pageReadOnly         = 0x02
	pageReadWrite        = 0x04
	pageWriteCopy        = 0x08
	pageExecute          = 0x10
	pageExecuteRead      = 0x20
	pageExecuteReadWrite = 0x40
	pageExecuteWriteCopy = 0x80
	pageGuard            = 0x100
)

// FromProtect converts a MEMORY_BASIC_INFORMATION record into a MemoryMapItem
// with a /proc-style permission string. Guard pages and PAGE_NOACCESS map to
// "---" so the scanner skips them.
func FromProtect(base uint64, size uint64, state uint32, protect uint32) MemoryMapItem {
	item := MemoryMapItem{
		Address:   base,
		Size:      uint(size),
		Perms:     "---p",
		Committed: state == memCommit,
	}
	if !item.Committed || protect&pageGuard != 0 {
		return item
	}

	switch protect &^ 0xF00 {
	case pageReadOnly:
		item.Perms = "r--p"
	case pageReadWrite, pageWriteCopy:
		item.Perms = "rw-p"
	case pageExecute:
		item.Perms = "--xp"
	case pageExecuteRead:
		item.Perms = "r-xp"
	case pageExecuteReadWrite, pageExecuteWriteCopy:
		item.Perms = "rwxp"
	case pageNoAccess:
		item.Perms = "---p"
	}
	return item
}
