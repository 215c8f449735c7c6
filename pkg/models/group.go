package models

type Group struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Low/High/Count are the upstream server's watermarks from the last
	// GROUP response; Count is the server's estimate, not ours.
	Low   int64 `json:"low"`
	High  int64 `json:"high"`
	Count int64 `json:"count"`
	// Posting reports whether the upstream allows posting to this group
	Posting    bool `json:"posting"`
	Subscribed bool `json:"subscribed"`
	// SyncedHigh is the highest article number fetched into the cache
	SyncedHigh int64 `json:"synced_high,omitempty"`
	// LastSyncTS is the completion time of the last sync (ns)
	LastSyncTS int64 `json:"last_sync_ts,omitempty"`
}
