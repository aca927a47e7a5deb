package catalog

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/bartolsthoorn/gomps/lp"
	"github.com/bartolsthoorn/gomps/mps"
)

var exampleFile = filepath.Join("..", "..", "mps", "testdata", "example_free.mps")

var _ = ginkgo.Describe("Catalog", func() {
	var (
		ctx   context.Context
		dir   string
		cat   *Catalog
		model *lp.Model
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		dir = ginkgo.GinkgoT().TempDir()

		var err error
		cat, err = Open(filepath.Join(dir, "catalog.db"))
		Expect(err).NotTo(HaveOccurred())
		ginkgo.DeferCleanup(cat.Close)

		model, err = mps.ReadFile(exampleFile, mps.Free)
		Expect(err).NotTo(HaveOccurred())
	})

	ginkgo.Context("when opening", func() {
		ginkgo.It("should configure WAL mode and the schema version", func() {
			var mode string
			Expect(cat.db.QueryRow("PRAGMA journal_mode").Scan(&mode)).To(Succeed())
			Expect(mode).To(Equal("wal"))

			var version int
			Expect(cat.db.QueryRow("PRAGMA user_version").Scan(&version)).To(Succeed())
			Expect(version).To(Equal(currentSchemaVersion))
		})

		ginkgo.It("should reopen an existing catalog", func() {
			entry, err := cat.Add(ctx, model)
			Expect(err).NotTo(HaveOccurred())
			Expect(cat.Close()).To(Succeed())

			reopened, err := Open(filepath.Join(dir, "catalog.db"))
			Expect(err).NotTo(HaveOccurred())
			ginkgo.DeferCleanup(reopened.Close)

			got, err := reopened.Get(ctx, entry.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Digest).To(Equal(entry.Digest))
		})
	})

	ginkgo.Context("when adding a model", func() {
		ginkgo.It("should record provenance and statistics", func() {
			entry, err := cat.Add(ctx, model)
			Expect(err).NotTo(HaveOccurred())

			id, err := uuid.Parse(entry.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(id.Version()).To(Equal(uuid.Version(7)))

			Expect(entry.Name).To(Equal("EXAMPLE"))
			Expect(entry.Source).To(Equal(exampleFile))
			Expect(entry.Dialect).To(Equal("free"))
			Expect(entry.Duplicates).To(Equal("sum"))
			Expect(entry.Sense).To(Equal("Maximize"))
			Expect(entry.Stats.Rows).To(Equal(4))
			Expect(entry.Stats.Cols).To(Equal(5))
			Expect(entry.Stats.Nonzeros).To(Equal(9))
			Expect(entry.Stats.Integers).To(Equal(2))
			Expect(entry.Digest).To(HaveLen(64))
			Expect(entry.CreatedAt).To(BeTemporally("~", time.Now(), time.Minute))
		})

		ginkgo.It("should return the existing entry for identical text", func() {
			first, err := cat.Add(ctx, model)
			Expect(err).NotTo(HaveOccurred())
			second, err := cat.Add(ctx, model)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.ID).To(Equal(first.ID))

			entries, err := cat.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})

		ginkgo.It("should reject an invalid model", func() {
			model.Cols[1].Lower = 10
			_, err := cat.Add(ctx, model)
			Expect(errors.Is(err, mps.ErrStructural)).To(BeTrue())
		})
	})

	ginkgo.Context("when listing", func() {
		ginkgo.It("should return an empty list for a new catalog", func() {
			entries, err := cat.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
			Expect(entries).NotTo(BeNil())
		})

		ginkgo.It("should order entries by creation time", func() {
			base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			tick := 0
			cat.now = func() time.Time {
				tick++
				return base.Add(time.Duration(tick) * time.Millisecond)
			}

			first, err := cat.Add(ctx, model)
			Expect(err).NotTo(HaveOccurred())
			model.Name = "SECOND"
			second, err := cat.Add(ctx, model)
			Expect(err).NotTo(HaveOccurred())

			entries, err := cat.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].ID).To(Equal(first.ID))
			Expect(entries[1].ID).To(Equal(second.ID))
			Expect(entries[1].Name).To(Equal("SECOND"))
		})
	})

	ginkgo.Context("when exporting", func() {
		ginkgo.It("should round-trip the model", func() {
			entry, err := cat.Add(ctx, model)
			Expect(err).NotTo(HaveOccurred())

			out := filepath.Join(dir, "export.mps")
			Expect(cat.Export(ctx, entry.ID, out)).To(Succeed())

			got, err := mps.ReadFile(out, mps.Fixed)
			Expect(err).NotTo(HaveOccurred())
			Expect(cmp.Diff(model, got, cmpopts.IgnoreFields(lp.Model{}, "Provenance"))).To(BeEmpty())

			stored, err := cat.Model(ctx, entry.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Provenance.Source).To(Equal("catalog:" + entry.ID))
			Expect(cmp.Diff(got, stored, cmpopts.IgnoreFields(lp.Model{}, "Provenance"))).To(BeEmpty())
		})

		ginkgo.It("should report unknown ids", func() {
			err := cat.Export(ctx, "no-such-id", filepath.Join(dir, "x.mps"))
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())

			_, err = cat.Get(ctx, "no-such-id")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
			Expect(errors.Is(err, sql.ErrNoRows)).To(BeFalse())

			_, err = os.Stat(filepath.Join(dir, "x.mps"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})
})
