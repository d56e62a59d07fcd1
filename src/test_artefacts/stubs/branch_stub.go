package stubs

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"orghierarchy/src/domain/entities"
)

type BranchStub struct {
	branch entities.Branch
}

func NewBranchStub() BranchStub {
	now := time.Now().UTC().Truncate(time.Microsecond)

	branch := entities.Branch{
		ID:             gofakeit.UUID(),
		Name:           gofakeit.Company() + " " + gofakeit.LetterN(6),
		OrganizationID: gofakeit.UUID(),
		ChildIDs:       []string{},
		IsRoot:         true,
		IsActive:       true,
		Address: entities.Address{
			Street:  gofakeit.Street(),
			Number:  gofakeit.StreetNumber(),
			City:    gofakeit.City(),
			State:   gofakeit.State(),
			ZipCode: gofakeit.Zip(),
			Country: gofakeit.CountryAbr(),
		},
		CreatedBy: gofakeit.Username(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	return BranchStub{branch: branch}
}

func (bs BranchStub) WithID(id string) BranchStub {
	bs.branch.ID = id
	return bs
}

func (bs BranchStub) WithName(name string) BranchStub {
	bs.branch.Name = name
	return bs
}

func (bs BranchStub) WithOrganization(organizationID string) BranchStub {
	bs.branch.OrganizationID = organizationID
	return bs
}

// WithParent também marca o branch como não raiz.
func (bs BranchStub) WithParent(parentID string) BranchStub {
	bs.branch.ParentID = &parentID
	bs.branch.IsRoot = false
	return bs
}

func (bs BranchStub) WithChildren(childIDs ...string) BranchStub {
	bs.branch.ChildIDs = append([]string{}, childIDs...)
	return bs
}

func (bs BranchStub) WithRoot(isRoot bool) BranchStub {
	bs.branch.IsRoot = isRoot
	return bs
}

func (bs BranchStub) Blocked() BranchStub {
	bs.branch.IsActive = false
	return bs
}

func (bs BranchStub) Deleted() BranchStub {
	deletedAt := bs.branch.UpdatedAt
	bs.branch.IsDeleted = true
	bs.branch.DeletedAt = &deletedAt
	return bs
}

func (bs BranchStub) Get() entities.Branch {
	return bs.branch
}
