package storage

import "github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/ports"

// Store is the artifact archive contract shared by API and worker.
// It is an alias to ports.ArchiveStore to keep call sites short.
type Store = ports.ArchiveStore
