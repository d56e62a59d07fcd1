package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	api "orghierarchy/src/adapters/http"
	"orghierarchy/src/domain"
	"orghierarchy/src/domain/entities"
	"orghierarchy/src/repositories"
	"orghierarchy/src/services/hierarchy"
	"orghierarchy/src/test_artefacts/stubs"
)

const organizationID = "O1"

func newTestServer(service api.BranchService) *api.Server {
	return api.NewServer(
		slog.New(slog.DiscardHandler),
		api.ServerOptions{Port: 0},
		api.NewTokenParser(testSecret),
		service,
	)
}

func doRequest(server *api.Server, method string, path string, token string, body any) *httptest.ResponseRecorder {
	var payload bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			payload.WriteString(b)
		default:
			Expect(json.NewEncoder(&payload).Encode(b)).To(Succeed())
		}
	}

	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func decode[T any](recorder *httptest.ResponseRecorder) T {
	var value T
	Expect(json.Unmarshal(recorder.Body.Bytes(), &value)).To(Succeed())
	return value
}

func leaf(id string, name string) *api.TreeResponse {
	return &api.TreeResponse{ID: id, Name: name, Children: []*api.TreeResponse{}}
}

var _ = Describe("Server", func() {
	var (
		store      *repositories.MemoryBranchRepository
		server     *api.Server
		adminToken string
	)

	BeforeEach(func() {
		store = repositories.NewMemoryBranchRepository()
		store.Put(stubs.NewBranchStub().WithID("1").WithName("Root").WithOrganization(organizationID).WithChildren("2", "3").Get())
		store.Put(stubs.NewBranchStub().WithID("2").WithName("Mid").WithOrganization(organizationID).WithParent("1").WithChildren("4").Get())
		store.Put(stubs.NewBranchStub().WithID("3").WithName("Leaf").WithOrganization(organizationID).WithParent("1").Get())
		store.Put(stubs.NewBranchStub().WithID("4").WithName("Leaf2").WithOrganization(organizationID).WithParent("2").Get())

		service := hierarchy.NewBranchService(slog.New(slog.DiscardHandler), store, nil, hierarchy.DefaultOptions())
		server = newTestServer(service)
		adminToken = signToken(claimsFor(organizationID, domain.RoleAdmin))
	})

	Describe("authentication", func() {
		It("rejects requests without a bearer token", func() {
			recorder := doRequest(server, http.MethodGet, "/v1/branches/tree", "", nil)

			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			Expect(decode[api.ErrorResponse](recorder).Details).To(Equal(api.ErrMissingToken.Error()))
		})

		It("rejects tokens that do not parse", func() {
			recorder := doRequest(server, http.MethodGet, "/v1/branches/tree", "not-a-jwt", nil)

			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			Expect(decode[api.ErrorResponse](recorder).Message).To(Equal("Invalid token"))
		})

		It("leaves /health open", func() {
			recorder := doRequest(server, http.MethodGet, "/health", "", nil)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Body.String()).To(MatchJSON(`{"status":"ok"}`))
		})
	})

	Describe("GET /v1/branches/tree", func() {
		It("returns the whole forest for an elevated caller", func() {
			// ACT
			recorder := doRequest(server, http.MethodGet, "/v1/branches/tree", adminToken, nil)

			// ASSERT
			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Body.String()).To(MatchJSON(`[
				{"id": "1", "name": "Root", "children": [
					{"id": "2", "name": "Mid", "children": [
						{"id": "4", "name": "Leaf2", "children": []}
					]},
					{"id": "3", "name": "Leaf", "children": []}
				]}
			]`))
		})

		It("prunes branches outside the caller allow-list", func() {
			// ARRANGE
			token := signToken(claimsFor(organizationID, domain.RoleManager, "Root", "Leaf", "Leaf2"))

			// ACT
			recorder := doRequest(server, http.MethodGet, "/v1/branches/tree", token, nil)

			// ASSERT
			Expect(recorder.Code).To(Equal(http.StatusOK))
			forest := decode[[]*api.TreeResponse](recorder)
			Expect(forest).To(Equal([]*api.TreeResponse{
				{ID: "1", Name: "Root", Children: []*api.TreeResponse{leaf("3", "Leaf")}},
			}))
		})

		It("returns an empty list for a caller without allowed branches", func() {
			token := signToken(claimsFor(organizationID, domain.RoleStaff))

			recorder := doRequest(server, http.MethodGet, "/v1/branches/tree", token, nil)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Body.String()).To(MatchJSON(`[]`))
		})
	})

	Describe("GET /v1/branches/:id/tree", func() {
		It("returns the subtree under the requested branch", func() {
			recorder := doRequest(server, http.MethodGet, "/v1/branches/2/tree", adminToken, nil)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(decode[*api.TreeResponse](recorder)).To(Equal(&api.TreeResponse{
				ID:       "2",
				Name:     "Mid",
				Children: []*api.TreeResponse{leaf("4", "Leaf2")},
			}))
		})

		It("answers 404 for a branch of another organization", func() {
			token := signToken(claimsFor("O2", domain.RoleAdmin))

			recorder := doRequest(server, http.MethodGet, "/v1/branches/1/tree", token, nil)

			Expect(recorder.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("GET /v1/branches", func() {
		It("pages the visible branches ordered by name", func() {
			recorder := doRequest(server, http.MethodGet, "/v1/branches?page=2&page_size=3", adminToken, nil)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			page := decode[api.BranchListResponse](recorder)
			Expect(page.Total).To(BeEquivalentTo(4))
			Expect(page.Page).To(Equal(2))
			Expect(page.PageSize).To(Equal(3))
			Expect(page.Items).To(HaveLen(1))
			Expect(page.Items[0].Name).To(Equal("Root"))
		})

		It("rejects a non numeric page", func() {
			recorder := doRequest(server, http.MethodGet, "/v1/branches?page=abc", adminToken, nil)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /v1/branches", func() {
		It("creates a branch under an existing parent", func() {
			// ARRANGE
			parentID := "3"
			request := api.CreateBranchRequest{
				Name:     "Filial Sul",
				ParentID: &parentID,
				Address:  api.AddressDTO{City: "Porto Alegre", State: "RS"},
			}

			// ACT
			recorder := doRequest(server, http.MethodPost, "/v1/branches", adminToken, request)

			// ASSERT
			Expect(recorder.Code).To(Equal(http.StatusCreated))
			created := decode[api.BranchResponse](recorder)
			Expect(created.Name).To(Equal("Filial Sul"))
			Expect(created.ParentID).To(HaveValue(Equal("3")))
			Expect(created.IsRoot).To(BeFalse())
			Expect(created.CreatedBy).To(Equal("user-1"))
			Expect(created.Address.City).To(Equal("Porto Alegre"))

			parent, err := store.FindOne(context.Background(), domain.BranchFilter{OrganizationID: organizationID}, "3")
			Expect(err).NotTo(HaveOccurred())
			Expect(parent.ChildIDs).To(ConsistOf(created.ID))
		})

		It("answers 409 for a duplicated name", func() {
			recorder := doRequest(server, http.MethodPost, "/v1/branches", adminToken, api.CreateBranchRequest{Name: "Mid"})

			Expect(recorder.Code).To(Equal(http.StatusConflict))
		})

		It("answers 400 with the failing field for a blank name", func() {
			recorder := doRequest(server, http.MethodPost, "/v1/branches", adminToken, api.CreateBranchRequest{Name: "   "})

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(decode[api.ErrorResponse](recorder).Details).To(HavePrefix("name"))
		})

		It("answers 400 for a malformed body", func() {
			recorder := doRequest(server, http.MethodPost, "/v1/branches", adminToken, `{"name":`)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(decode[api.ErrorResponse](recorder).Message).To(Equal("Invalid request body"))
		})
	})

	Describe("PUT /v1/branches/:id", func() {
		It("answers 400 when the move would create a cycle", func() {
			parentID := "4"

			recorder := doRequest(server, http.MethodPut, "/v1/branches/1", adminToken, api.EditBranchRequest{ParentID: &parentID})

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})

		It("renames the branch", func() {
			name := "Matriz"

			recorder := doRequest(server, http.MethodPut, "/v1/branches/1", adminToken, api.EditBranchRequest{Name: &name})

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(decode[api.BranchResponse](recorder).Name).To(Equal("Matriz"))
		})
	})

	Describe("status routes", func() {
		It("blocks and unblocks a branch", func() {
			blocked := doRequest(server, http.MethodPatch, "/v1/branches/3/block", adminToken, nil)
			Expect(blocked.Code).To(Equal(http.StatusOK))
			Expect(decode[api.BranchResponse](blocked).IsActive).To(BeFalse())

			unblocked := doRequest(server, http.MethodPatch, "/v1/branches/3/unblock", adminToken, nil)
			Expect(unblocked.Code).To(Equal(http.StatusOK))
			Expect(decode[api.BranchResponse](unblocked).IsActive).To(BeTrue())
		})

		It("deletes a branch and hides it afterwards", func() {
			deleted := doRequest(server, http.MethodDelete, "/v1/branches/3", adminToken, nil)
			Expect(deleted.Code).To(Equal(http.StatusOK))
			Expect(deleted.Body.String()).To(MatchJSON(`{"message":"branch deleted"}`))

			recorder := doRequest(server, http.MethodGet, "/v1/branches/3", adminToken, nil)
			Expect(recorder.Code).To(Equal(http.StatusNotFound))
		})
	})

	DescribeTable("error mapping",
		func(err error, expectedStatus int) {
			// ARRANGE
			failing := newTestServer(&failingService{err: err})

			// ACT
			recorder := doRequest(failing, http.MethodGet, "/v1/branches/x", adminToken, nil)

			// ASSERT
			Expect(recorder.Code).To(Equal(expectedStatus))
			Expect(decode[api.ErrorResponse](recorder).Status).To(Equal(expectedStatus))
		},
		Entry("not found", fmt.Errorf("lookup: %w", domain.ErrBranchNotFound), http.StatusNotFound),
		Entry("already exists", domain.ErrBranchAlreadyExists, http.StatusConflict),
		Entry("validation", &domain.ValidationError{Field: "name", Reason: "is required"}, http.StatusBadRequest),
		Entry("cycle", domain.ErrHierarchyCycle, http.StatusBadRequest),
		Entry("closure too large", domain.ErrClosureTooLarge, http.StatusUnprocessableEntity),
		Entry("timeout", fmt.Errorf("traverse: %w", context.DeadlineExceeded), http.StatusGatewayTimeout),
		Entry("anything else", errors.New("connection refused"), http.StatusInternalServerError),
	)

	It("reports 503 when the store is unhealthy", func() {
		failing := newTestServer(&failingService{err: errors.New("down")})

		recorder := doRequest(failing, http.MethodGet, "/health", "", nil)

		Expect(recorder.Code).To(Equal(http.StatusServiceUnavailable))
	})
})

// failingService devolve sempre o mesmo erro.
type failingService struct {
	err error
}

func (f *failingService) ListForest(context.Context, domain.CallerContext) ([]*domain.TreeNode, error) {
	return nil, f.err
}

func (f *failingService) ListSubtree(context.Context, domain.CallerContext, string) (*domain.TreeNode, error) {
	return nil, f.err
}

func (f *failingService) GetByID(context.Context, domain.CallerContext, string) (*entities.Branch, error) {
	return nil, f.err
}

func (f *failingService) List(context.Context, domain.CallerContext, int, int) (*domain.BranchPage, error) {
	return nil, f.err
}

func (f *failingService) Create(context.Context, domain.CallerContext, domain.CreateBranchRequest) (*entities.Branch, error) {
	return nil, f.err
}

func (f *failingService) Edit(context.Context, domain.CallerContext, domain.EditBranchRequest) (*entities.Branch, error) {
	return nil, f.err
}

func (f *failingService) Block(context.Context, domain.CallerContext, string) (*entities.Branch, error) {
	return nil, f.err
}

func (f *failingService) Unblock(context.Context, domain.CallerContext, string) (*entities.Branch, error) {
	return nil, f.err
}

func (f *failingService) Delete(context.Context, domain.CallerContext, string) error {
	return f.err
}

func (f *failingService) HealthCheck(context.Context) error {
	return f.err
}
