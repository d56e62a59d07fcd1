package consumers_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"orghierarchy/src/adapters/kafka/consumers"
	"orghierarchy/src/domain"
	"orghierarchy/src/domain/entities"
	"orghierarchy/src/infra/kafka"
	"orghierarchy/src/repositories"
	"orghierarchy/src/services/hierarchy"
)

const organizationID = "O1"

func importMessage(name string, parentName string) kafka.Message {
	value, err := json.Marshal(consumers.BranchImportMessage{
		OrganizationID: organizationID,
		Name:           name,
		ParentName:     parentName,
		CreatedBy:      "importer",
	})
	Expect(err).NotTo(HaveOccurred())
	return kafka.Message{Key: organizationID, Value: value}
}

type failingCreator struct {
	err error
}

func (f failingCreator) Create(context.Context, domain.CallerContext, domain.CreateBranchRequest) (*entities.Branch, error) {
	return nil, f.err
}

type failingFinder struct {
	err error
}

func (f failingFinder) FindByName(context.Context, string, string) (*entities.Branch, error) {
	return nil, f.err
}

var _ = Describe("BranchImportConsumer", func() {
	var (
		ctx      context.Context
		store    *repositories.MemoryBranchRepository
		consumer *consumers.BranchImportConsumer
		tenant   domain.BranchFilter
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = repositories.NewMemoryBranchRepository()
		service := hierarchy.NewBranchService(slog.New(slog.DiscardHandler), store, nil, hierarchy.DefaultOptions())
		consumer = consumers.NewBranchImportConsumer(slog.New(slog.DiscardHandler), service, store)
		tenant = domain.BranchFilter{OrganizationID: organizationID}
	})

	It("creates parents before children regardless of message order", func() {
		// ARRANGE
		messages := []kafka.Message{
			importMessage("Filial Centro", "Regional Sul"),
			importMessage("Regional Sul", "Matriz"),
			importMessage("Matriz", ""),
		}

		// ACT
		err := consumer.HandleMessages(ctx, messages)

		// ASSERT
		Expect(err).NotTo(HaveOccurred())

		matriz, err := store.FindByName(ctx, organizationID, "Matriz")
		Expect(err).NotTo(HaveOccurred())
		regional, err := store.FindByName(ctx, organizationID, "Regional Sul")
		Expect(err).NotTo(HaveOccurred())
		filial, err := store.FindByName(ctx, organizationID, "Filial Centro")
		Expect(err).NotTo(HaveOccurred())

		Expect(matriz.IsRoot).To(BeTrue())
		Expect(matriz.ChildIDs).To(Equal([]string{regional.ID}))
		Expect(regional.ChildIDs).To(Equal([]string{filial.ID}))
		Expect(filial.ParentID).To(HaveValue(Equal(regional.ID)))
		Expect(filial.CreatedBy).To(Equal("importer"))
	})

	It("skips branches that were already imported", func() {
		// ARRANGE
		Expect(consumer.HandleMessages(ctx, []kafka.Message{importMessage("Matriz", "")})).To(Succeed())

		// ACT
		err := consumer.HandleMessages(ctx, []kafka.Message{importMessage("Matriz", "")})

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Count(ctx, tenant)).To(BeEquivalentTo(1))
	})

	It("drops undecodable and incomplete messages without failing the batch", func() {
		// ARRANGE
		messages := []kafka.Message{
			{Key: organizationID, Value: []byte(`{"name":`)},
			{Key: organizationID, Value: []byte(`{"organization_id":"O1","name":"   "}`)},
			importMessage("Matriz", ""),
		}

		// ACT
		err := consumer.HandleMessages(ctx, messages)

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Count(ctx, tenant)).To(BeEquivalentTo(1))
	})

	It("leaves out branches whose parent is nowhere to be found", func() {
		// ACT
		err := consumer.HandleMessages(ctx, []kafka.Message{
			importMessage("Matriz", ""),
			importMessage("Filial Perdida", "Regional Inexistente"),
		})

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		_, err = store.FindByName(ctx, organizationID, "Filial Perdida")
		Expect(err).To(MatchError(domain.ErrBranchNotFound))
	})

	It("fails the batch when the store fails", func() {
		// ARRANGE
		storeErr := errors.New("connection reset")
		failing := consumers.NewBranchImportConsumer(slog.New(slog.DiscardHandler), failingCreator{err: storeErr}, store)

		// ACT
		err := failing.HandleMessages(ctx, []kafka.Message{importMessage("Matriz", "")})

		// ASSERT
		Expect(err).To(MatchError(storeErr))
	})

	It("fails the batch when the parent lookup fails", func() {
		lookupErr := errors.New("timeout")
		failing := consumers.NewBranchImportConsumer(slog.New(slog.DiscardHandler), failingCreator{}, failingFinder{err: lookupErr})

		err := failing.HandleMessages(ctx, []kafka.Message{importMessage("Filial", "Matriz")})

		Expect(err).To(MatchError(lookupErr))
	})

	It("accepts an empty batch", func() {
		Expect(consumer.HandleMessages(ctx, nil)).To(Succeed())
	})
})
