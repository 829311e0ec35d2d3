package domain

import (
	"testing"

	"invoicedesk/testutil"
)

func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "domain must not depend on internal packages")
}
