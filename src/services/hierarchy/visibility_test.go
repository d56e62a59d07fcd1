package hierarchy_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"orghierarchy/src/domain"
	"orghierarchy/src/services/hierarchy"
	"orghierarchy/src/test_artefacts/stubs"
)

var _ = Describe("VisibilityPolicy", func() {
	policy := hierarchy.NewVisibilityPolicy()

	It("scopes elevated callers to their organization only", func() {
		caller := stubs.NewCallerStub("org-1").WithBranches("Root").Get()

		filter := policy.Filter(caller)

		Expect(filter).To(Equal(domain.BranchFilter{OrganizationID: "org-1"}))
	})

	It("restricts other roles to the allowed branch names", func() {
		caller := stubs.NewCallerStub("org-1").WithRole(domain.RoleStaff).WithBranches("Root", "Mid").Get()

		filter := policy.Filter(caller)

		Expect(filter.RestrictNames).To(BeTrue())
		Expect(filter.AllowedNames).To(ConsistOf("Root", "Mid"))
		Expect(filter.Empty()).To(BeFalse())
	})

	It("yields a filter that matches nothing when the allow-list is empty", func() {
		caller := stubs.NewCallerStub("org-1").WithRole(domain.RoleManager).Get()

		filter := policy.Filter(caller)

		Expect(filter.Empty()).To(BeTrue())
		Expect(filter.Matches(stubs.NewBranchStub().WithOrganization("org-1").Get())).To(BeFalse())
	})

	It("always treats the system role as elevated", func() {
		custom := hierarchy.NewVisibilityPolicy(domain.RoleManager)

		Expect(custom.IsElevated(domain.RoleSystem)).To(BeTrue())
		Expect(custom.IsElevated(domain.RoleManager)).To(BeTrue())
		Expect(custom.IsElevated(domain.RoleAdmin)).To(BeFalse())
	})

	Context("BranchFilter.Matches", func() {
		filter := domain.BranchFilter{OrganizationID: "org-1", RestrictNames: true, AllowedNames: []string{"Root"}}

		It("rejects deleted branches", func() {
			Expect(filter.Matches(stubs.NewBranchStub().WithOrganization("org-1").WithName("Root").Deleted().Get())).To(BeFalse())
		})

		It("rejects other organizations", func() {
			Expect(filter.Matches(stubs.NewBranchStub().WithOrganization("org-2").WithName("Root").Get())).To(BeFalse())
		})

		It("accepts blocked branches", func() {
			Expect(filter.Matches(stubs.NewBranchStub().WithOrganization("org-1").WithName("Root").Blocked().Get())).To(BeTrue())
		})
	})
})
