package catalog

import (
	"testing"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/bartolsthoorn/gomps/internal/logging"
)

func TestCatalog(t *testing.T) {
	logging.NewTestLogger()
	RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Catalog Suite")
}
