package hierarchy_test

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp/cmpopts"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"orghierarchy/src/domain"
	"orghierarchy/src/repositories"
	"orghierarchy/src/services/hierarchy"
	"orghierarchy/src/test_artefacts/stubs"
)

var _ = Describe("ListForest", func() {
	var (
		ctx     context.Context
		store   *repositories.MemoryBranchRepository
		service *hierarchy.BranchService
		admin   domain.CallerContext
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = repositories.NewMemoryBranchRepository()
		service = newTestService(store, nil, hierarchy.DefaultOptions())
		admin = stubs.NewCallerStub("O1").Get()
	})

	When("the organization has no branches", func() {
		It("returns an empty forest", func() {
			forest, err := service.ListForest(ctx, admin)

			Expect(err).NotTo(HaveOccurred())
			Expect(forest).NotTo(BeNil())
			Expect(forest).To(BeEmpty())
		})
	})

	When("the organization has several roots", func() {
		BeforeEach(func() {
			seedScenario(store, "O1")
			putBranch(store, "O1", "10", "Another root", true, "11")
			putBranch(store, "O1", "11", "Another leaf", false)
			putBranch(store, "O1", "20", "Zeta root", true)
		})

		It("returns exactly one tree per root ordered by name", func() {
			// ACT
			forest, err := service.ListForest(ctx, admin)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(forest).To(HaveLen(3))

			ids := []string{forest[0].ID, forest[1].ID, forest[2].ID}
			Expect(ids).To(Equal([]string{"10", "1", "20"}))

			Expect(forest[0]).To(BeComparableTo(tree("10", "Another root", tree("11", "Another leaf")), cmpopts.EquateEmpty()))
			Expect(forest[1]).To(BeComparableTo(
				tree("1", "Root", tree("2", "Mid", tree("4", "Leaf2")), tree("3", "Leaf")),
				cmpopts.EquateEmpty(),
			))
			Expect(forest[2].Children).To(BeEmpty())
		})

		It("omits deleted roots and deleted descendants", func() {
			Expect(service.Delete(ctx, admin, "20")).To(Succeed())
			Expect(service.Delete(ctx, admin, "4")).To(Succeed())

			forest, err := service.ListForest(ctx, admin)

			Expect(err).NotTo(HaveOccurred())
			Expect(forest).To(HaveLen(2))
			Expect(forest[1].ID).To(Equal("1"))
			Expect(forest[1].Children[0].Children).To(BeEmpty())
		})

		It("does not treat non root branches as roots", func() {
			forest, err := service.ListForest(ctx, admin)

			Expect(err).NotTo(HaveOccurred())
			for _, t := range forest {
				Expect(t.ID).NotTo(BeElementOf("2", "3", "4", "11"))
			}
		})

		It("does not mix organizations", func() {
			putBranch(store, "O2", "99", "Foreign root", true)

			forest, err := service.ListForest(ctx, stubs.NewCallerStub("O2").Get())

			Expect(err).NotTo(HaveOccurred())
			Expect(forest).To(HaveLen(1))
			Expect(forest[0].ID).To(Equal("99"))
		})
	})

	When("the caller has a restricted role", func() {
		BeforeEach(func() {
			seedScenario(store, "O1")
			putBranch(store, "O1", "10", "Another root", true)
		})

		It("lists only visible roots with visible descendants", func() {
			staff := stubs.NewCallerStub("O1").WithRole(domain.RoleStaff).WithBranches("Root", "Leaf").Get()

			forest, err := service.ListForest(ctx, staff)

			Expect(err).NotTo(HaveOccurred())
			Expect(forest).To(HaveLen(1))
			Expect(forest[0]).To(BeComparableTo(tree("1", "Root", tree("3", "Leaf")), cmpopts.EquateEmpty()))
		})

		It("returns an empty forest when no allowed branch is a root", func() {
			staff := stubs.NewCallerStub("O1").WithRole(domain.RoleStaff).WithBranches("Mid").Get()

			forest, err := service.ListForest(ctx, staff)

			Expect(err).NotTo(HaveOccurred())
			Expect(forest).To(BeEmpty())
		})

		It("returns an empty forest for an empty allow-list", func() {
			staff := stubs.NewCallerStub("O1").WithRole(domain.RoleManager).Get()

			forest, err := service.ListForest(ctx, staff)

			Expect(err).NotTo(HaveOccurred())
			Expect(forest).To(BeEmpty())
		})
	})

	When("a root is also a descendant of another root", func() {
		It("returns it both as its own tree and inside the other tree", func() {
			putBranch(store, "O1", "a", "A root", true, "b")
			putBranch(store, "O1", "b", "B root", true, "c")
			putBranch(store, "O1", "c", "C leaf", false)

			forest, err := service.ListForest(ctx, admin)

			Expect(err).NotTo(HaveOccurred())
			Expect(forest).To(HaveLen(2))
			Expect(forest[0]).To(BeComparableTo(
				tree("a", "A root", tree("b", "B root", tree("c", "C leaf"))),
				cmpopts.EquateEmpty(),
			))
			Expect(forest[1]).To(BeComparableTo(tree("b", "B root", tree("c", "C leaf")), cmpopts.EquateEmpty()))
		})
	})

	When("there are more roots than the traversal concurrency", func() {
		It("still returns every root", func() {
			options := hierarchy.DefaultOptions()
			options.ForestConcurrency = 2
			limited := newTestService(store, nil, options)

			for i := 0; i < 12; i++ {
				putBranch(store, "O1", fmt.Sprintf("r%02d", i), fmt.Sprintf("Root %02d", i), true)
			}

			forest, err := limited.ListForest(ctx, admin)

			Expect(err).NotTo(HaveOccurred())
			Expect(forest).To(HaveLen(12))
			Expect(forest[0].ID).To(Equal("r00"))
			Expect(forest[11].ID).To(Equal("r11"))
		})
	})
})
