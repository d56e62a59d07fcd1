package hierarchy_test

import (
	"github.com/google/go-cmp/cmp/cmpopts"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"orghierarchy/src/domain"
	"orghierarchy/src/services/hierarchy"
)

var _ = Describe("Tree assembler", func() {
	Context("BuildTree", func() {
		When("the closure is a plain tree", func() {
			It("nests children in childIds order", func() {
				// ARRANGE
				nodes := []domain.FlatNode{flat("3"), flat("1", "2", "3"), flat("4"), flat("2", "4")}

				// ACT
				root, report := hierarchy.BuildTree(nodes, "1")

				// ASSERT
				expected := tree("1", "node-1",
					tree("2", "node-2", tree("4", "node-4")),
					tree("3", "node-3"),
				)
				Expect(root).To(BeComparableTo(expected, cmpopts.EquateEmpty()))
				Expect(report.Empty()).To(BeTrue())
			})
		})

		When("the root is not in the closure", func() {
			It("returns nil", func() {
				root, _ := hierarchy.BuildTree([]domain.FlatNode{flat("2")}, "1")

				Expect(root).To(BeNil())
			})
		})

		When("a node is reachable through two parents", func() {
			It("shares the same node under both parents", func() {
				// ARRANGE
				nodes := []domain.FlatNode{flat("1", "2", "3"), flat("2", "4"), flat("3", "4"), flat("4")}

				// ACT
				root, report := hierarchy.BuildTree(nodes, "1")

				// ASSERT
				Expect(report.BackEdges).To(BeEmpty())
				Expect(root.Children).To(HaveLen(2))
				Expect(root.Children[0].Children[0]).To(BeIdenticalTo(root.Children[1].Children[0]))
			})
		})

		When("two nodes reference each other", func() {
			It("terminates with B under A and drops the edge back to A", func() {
				// ARRANGE
				nodes := []domain.FlatNode{flat("A", "B"), flat("B", "A")}

				// ACT
				root, report := hierarchy.BuildTree(nodes, "A")

				// ASSERT
				Expect(root).To(BeComparableTo(tree("A", "node-A", tree("B", "node-B")), cmpopts.EquateEmpty()))
				Expect(report.BackEdges).To(ConsistOf(domain.Edge{ParentID: "B", ChildID: "A"}))
			})
		})

		When("a longer cycle returns to the root", func() {
			It("cuts the closing edge only", func() {
				nodes := []domain.FlatNode{flat("A", "B"), flat("B", "C"), flat("C", "A")}

				root, report := hierarchy.BuildTree(nodes, "A")

				Expect(root).To(BeComparableTo(
					tree("A", "node-A", tree("B", "node-B", tree("C", "node-C"))),
					cmpopts.EquateEmpty(),
				))
				Expect(report.BackEdges).To(ConsistOf(domain.Edge{ParentID: "C", ChildID: "A"}))
			})
		})

		When("a node lists itself as child", func() {
			It("ignores the self reference and reports it", func() {
				root, report := hierarchy.BuildTree([]domain.FlatNode{flat("1", "1", "2"), flat("2")}, "1")

				Expect(childIDs(root)).To(Equal([]string{"2"}))
				Expect(report.SelfLoops).To(ConsistOf("1"))
			})
		})

		When("childIds repeat an id", func() {
			It("attaches the child once", func() {
				root, _ := hierarchy.BuildTree([]domain.FlatNode{flat("1", "2", "2"), flat("2")}, "1")

				Expect(childIDs(root)).To(Equal([]string{"2"}))
			})
		})

		When("a child reference is outside the closure", func() {
			It("skips it and reports a dangling reference", func() {
				root, report := hierarchy.BuildTree([]domain.FlatNode{flat("1", "2", "9")}, "1")

				Expect(childIDs(root)).To(BeEmpty())
				Expect(report.DanglingRefs).To(ConsistOf(
					domain.Edge{ParentID: "1", ChildID: "2"},
					domain.Edge{ParentID: "1", ChildID: "9"},
				))
			})
		})

		When("the closure has duplicate entries for the same id", func() {
			It("keeps the first one", func() {
				nodes := []domain.FlatNode{flat("1", "2"), flat("2"), flat("2", "1")}

				root, report := hierarchy.BuildTree(nodes, "1")

				Expect(root).To(BeComparableTo(tree("1", "node-1", tree("2", "node-2")), cmpopts.EquateEmpty()))
				Expect(report.BackEdges).To(BeEmpty())
			})
		})
	})

	Context("BuildForest", func() {
		It("returns one tree per requested root in the requested order", func() {
			// ARRANGE
			nodes := []domain.FlatNode{flat("r1", "a"), flat("a"), flat("r2", "b"), flat("b")}

			// ACT
			forest, _ := hierarchy.BuildForest(nodes, []string{"r2", "r1"})

			// ASSERT
			Expect(forest).To(HaveLen(2))
			Expect(forest[0].ID).To(Equal("r2"))
			Expect(forest[1].ID).To(Equal("r1"))
			Expect(childIDs(forest[0])).To(Equal([]string{"b"}))
			Expect(childIDs(forest[1])).To(Equal([]string{"a"}))
		})

		It("skips roots missing from the closure", func() {
			forest, _ := hierarchy.BuildForest([]domain.FlatNode{flat("r1")}, []string{"r1", "gone"})

			Expect(forest).To(HaveLen(1))
			Expect(forest[0].ID).To(Equal("r1"))
		})

		It("does not share nodes between different trees", func() {
			// ARRANGE
			nodes := []domain.FlatNode{flat("r1", "shared"), flat("r2", "shared"), flat("shared")}

			// ACT
			forest, _ := hierarchy.BuildForest(nodes, []string{"r1", "r2"})

			// ASSERT
			Expect(forest[0].Children[0].ID).To(Equal("shared"))
			Expect(forest[1].Children[0].ID).To(Equal("shared"))
			Expect(forest[0].Children[0]).NotTo(BeIdenticalTo(forest[1].Children[0]))
		})

		It("builds a root that is also a descendant of another root in both trees", func() {
			nodes := []domain.FlatNode{flat("r1", "r2"), flat("r2", "x"), flat("x")}

			forest, report := hierarchy.BuildForest(nodes, []string{"r1", "r2"})

			Expect(forest).To(HaveLen(2))
			Expect(forest[0]).To(BeComparableTo(
				tree("r1", "node-r1", tree("r2", "node-r2", tree("x", "node-x"))),
				cmpopts.EquateEmpty(),
			))
			Expect(forest[1]).To(BeComparableTo(tree("r2", "node-r2", tree("x", "node-x")), cmpopts.EquateEmpty()))
			Expect(report.Empty()).To(BeTrue())
		})
	})
})
