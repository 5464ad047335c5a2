package credcache

import "fmt"

// LoadError indicates that the initial cache state could not be fetched.
type LoadError struct {
	Ref SecretReference
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load initial cache from %s: %v", e.Ref, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SaveError indicates that a freshly generated credential could not be
// persisted to the backing Secret.
type SaveError struct {
	Ref SecretReference
	Key string
	Err error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("failed to save credential %s to %s: %v", e.Key, e.Ref, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// MissingAfterSaveError indicates that the apiserver accepted the save but the
// returned Secret did not contain the key. This should not happen with a
// well-behaved apiserver.
type MissingAfterSaveError struct {
	Ref SecretReference
	Key string
}

func (e *MissingAfterSaveError) Error() string {
	return fmt.Sprintf("newly saved credential %s was not found in %s", e.Key, e.Ref)
}
