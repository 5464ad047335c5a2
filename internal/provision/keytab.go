package provision

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/jcmturner/gokrb5/v8/keytab"

	"github.com/viet-stackable/secret-operator/internal/telemetry"
	"github.com/viet-stackable/secret-operator/pkg/krb5"
)

// WriteKeytab writes the given key sets into a keytab file at path and
// verifies the result parses as a valid keytab before returning.
//
// The krb5 context is borrowed for the duration of the call; it must not be
// used concurrently from other goroutines.
func (p *Provisioner) WriteKeytab(ctx context.Context, krb *krb5.Context, keys map[string]KeySet, path string) error {
	ctx, span := telemetry.StartSpan(ctx, "provision.WriteKeytab")
	defer span.End()

	principals := make([]string, 0, len(keys))
	for principal := range keys {
		principals = append(principals, principal)
	}
	sort.Strings(principals)

	entries, err := writeKeytabFile(krb, principals, keys, path)
	if err != nil {
		p.metrics.RecordError("write_keytab")
		telemetry.RecordError(ctx, err)
		return err
	}
	p.metrics.RecordKeytabEntries(entries)

	if err := verifyKeytab(path); err != nil {
		p.metrics.RecordError("write_keytab")
		telemetry.RecordError(ctx, err)
		return err
	}
	return nil
}

func writeKeytabFile(krb *krb5.Context, principals []string, keys map[string]KeySet, path string) (entries int, err error) {
	kt, err := krb5.ResolveKeytab(krb, "FILE:"+path)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve keytab %q: %w", path, err)
	}
	defer func() {
		if closeErr := kt.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close keytab %q: %w", path, closeErr)
		}
	}()

	for _, principal := range principals {
		if err := addPrincipalEntries(krb, kt, principal, keys[principal]); err != nil {
			return entries, err
		}
		entries += len(keys[principal].Entries)
	}
	return entries, nil
}

func addPrincipalEntries(krb *krb5.Context, kt *krb5.Keytab, principal string, keys KeySet) error {
	parsed, err := krb.ParsePrincipal(principal)
	if err != nil {
		return fmt.Errorf("failed to parse principal %q: %w", principal, err)
	}
	defer parsed.Free()

	for _, entry := range keys.Entries {
		if err := addEntry(krb, kt, parsed, entry); err != nil {
			return fmt.Errorf("failed to add key (kvno %d) for principal %q: %w", entry.Kvno, principal, err)
		}
	}
	return nil
}

func addEntry(krb *krb5.Context, kt *krb5.Keytab, principal *krb5.Principal, entry KeyEntry) error {
	kb, err := krb5.NewKeyblock(krb, entry.Enctype, uint(len(entry.Key)))
	if err != nil {
		return err
	}
	defer kb.Free()

	contents, err := kb.Contents()
	if err != nil {
		return err
	}
	copy(contents, entry.Key)

	ref, err := kb.Ref()
	if err != nil {
		return err
	}
	return kt.Add(principal, entry.Kvno, ref)
}

// verifyKeytab checks that the written file parses as a keytab.
func verifyKeytab(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read back keytab %q: %w", path, err)
	}
	kt := keytab.New()
	if err := kt.Unmarshal(data); err != nil {
		return fmt.Errorf("written keytab %q does not parse: %w", path, err)
	}
	return nil
}
