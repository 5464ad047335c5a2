package provision

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/viet-stackable/secret-operator/pkg/krb5"
)

// KeyEntry is a single long-term key of a principal.
type KeyEntry struct {
	Kvno    krb5.Kvno    `json:"kvno"`
	Enctype krb5.Enctype `json:"enctype"`
	Key     []byte       `json:"key"`
}

// KeySet is the full set of long-term keys of a principal, as stored in the
// credential cache.
type KeySet struct {
	Entries []KeyEntry `json:"entries"`
}

// Encode serializes the key set deterministically: entries sorted by kvno
// then enctype, so concurrent provisioners that fetched the same keys produce
// byte-identical cache values.
func (s KeySet) Encode() ([]byte, error) {
	entries := make([]KeyEntry, len(s.Entries))
	copy(entries, s.Entries)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Kvno != entries[j].Kvno {
			return entries[i].Kvno < entries[j].Kvno
		}
		return entries[i].Enctype < entries[j].Enctype
	})

	data, err := json.Marshal(KeySet{Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("failed to encode key set: %w", err)
	}
	return data, nil
}

// DecodeKeySet parses a key set previously produced by Encode.
func DecodeKeySet(data []byte) (KeySet, error) {
	var s KeySet
	if err := json.Unmarshal(data, &s); err != nil {
		return KeySet{}, fmt.Errorf("failed to decode key set: %w", err)
	}
	return s, nil
}
