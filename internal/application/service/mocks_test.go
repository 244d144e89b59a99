package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/garyjia/purchase-approval/internal/application/port"
	appwf "github.com/garyjia/purchase-approval/internal/application/workflow"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	domainwf "github.com/garyjia/purchase-approval/internal/domain/workflow"
)

type mockRequestRepo struct {
	getByIDFunc func(ctx context.Context, id int64) (*entity.PurchaseRequest, error)
	listFunc    func(ctx context.Context, filter port.RequestFilter) ([]*entity.PurchaseRequest, int, error)
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.PurchaseRequest) error {
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id int64) (*entity.PurchaseRequest, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockRequestRepo) UpdateWorkflow(ctx context.Context, req *entity.PurchaseRequest, expectedVersion int64) error {
	return nil
}

func (m *mockRequestRepo) List(ctx context.Context, filter port.RequestFilter) ([]*entity.PurchaseRequest, int, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return nil, 0, nil
}

// requestsByID serves GetByID from a fixed set
func requestsByID(reqs ...*entity.PurchaseRequest) *mockRequestRepo {
	return &mockRequestRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.PurchaseRequest, error) {
			for _, r := range reqs {
				if r.ID == id {
					return r, nil
				}
			}
			return nil, nil
		},
	}
}

type mockStepRepo struct {
	listByRequestIDFunc func(ctx context.Context, requestID int64) ([]*entity.RequestStep, error)
	listSinceFunc       func(ctx context.Context, since time.Time) ([]*entity.RequestStep, error)
}

func (m *mockStepRepo) Append(ctx context.Context, step *entity.RequestStep) error {
	return nil
}

func (m *mockStepRepo) ListByRequestID(ctx context.Context, requestID int64) ([]*entity.RequestStep, error) {
	if m.listByRequestIDFunc != nil {
		return m.listByRequestIDFunc(ctx, requestID)
	}
	return nil, nil
}

func (m *mockStepRepo) ListSince(ctx context.Context, since time.Time) ([]*entity.RequestStep, error) {
	if m.listSinceFunc != nil {
		return m.listSinceFunc(ctx, since)
	}
	return nil, nil
}

type mockEngine struct {
	submitFunc   func(ctx context.Context, actor entity.Actor, cmd appwf.SubmitCommand) (*appwf.TransitionResult, error)
	validateFunc func(ctx context.Context, cmd appwf.ValidateCommand) (*appwf.TransitionResult, error)
}

func (m *mockEngine) Submit(ctx context.Context, actor entity.Actor, cmd appwf.SubmitCommand) (*appwf.TransitionResult, error) {
	return m.submitFunc(ctx, actor, cmd)
}

func (m *mockEngine) Validate(ctx context.Context, cmd appwf.ValidateCommand) (*appwf.TransitionResult, error) {
	return m.validateFunc(ctx, cmd)
}

func (m *mockEngine) Policy() *domainwf.Policy {
	return appwf.BuildPurchasePolicy()
}

type mockUsers struct {
	users []*entity.User
	err   error
}

func (m *mockUsers) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUsers) ListByRole(ctx context.Context, role domainwf.Role) ([]*entity.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*entity.User
	for _, u := range m.users {
		if u.Role == role && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

type mockMailer struct {
	mu      sync.Mutex
	sent    []*port.MailMessage
	sendErr error
}

func (m *mockMailer) Send(ctx context.Context, msg *port.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockMailer) Name() string { return "mock" }

type mockAttachmentRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*entity.Attachment
	create error
}

func newMockAttachmentRepo() *mockAttachmentRepo {
	return &mockAttachmentRepo{items: map[int64]*entity.Attachment{}}
}

func (m *mockAttachmentRepo) Create(ctx context.Context, att *entity.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.create != nil {
		return m.create
	}
	m.nextID++
	att.ID = m.nextID
	m.items[att.ID] = att
	return nil
}

func (m *mockAttachmentRepo) GetByID(ctx context.Context, id int64) (*entity.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id], nil
}

func (m *mockAttachmentRepo) ListByRequestID(ctx context.Context, requestID int64) ([]*entity.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Attachment
	for _, a := range m.items {
		if a.RequestID == requestID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAttachmentRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

// memoryStorage keeps file content in a map
type memoryStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: map[string][]byte{}}
}

func (m *memoryStorage) Save(ctx context.Context, path string, r io.Reader, maxBytes int64) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return 0, fmt.Errorf("%w: more than %d bytes", port.ErrFileTooLarge, maxBytes)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = data
	return int64(len(data)), nil
}

func (m *memoryStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("missing %s", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStorage) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *memoryStorage) has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

var (
	employee   = entity.Actor{ID: "u-emp", Role: domainwf.RoleEmployee, Department: "IT"}
	otherEmp   = entity.Actor{ID: "u-emp-2", Role: domainwf.RoleEmployee, Department: "Sales"}
	mg         = entity.Actor{ID: "u-mg", Role: domainwf.RoleMG}
	accounting = entity.Actor{ID: "u-acc", Role: domainwf.RoleAccounting}
	director   = entity.Actor{ID: "u-dir", Role: domainwf.RoleDirector}
)

var fixedNow = time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)

func request(id int64, status domainwf.Status) *entity.PurchaseRequest {
	return &entity.PurchaseRequest{
		ID:              id,
		RequesterID:     employee.ID,
		Department:      "IT",
		ItemDescription: "Laptop",
		Quantity:        1,
		Urgency:         entity.UrgencyHigh,
		Justification:   "Replacement",
		Status:          status,
		Version:         1,
		CreatedAt:       fixedNow.AddDate(0, 0, -3),
		UpdatedAt:       fixedNow.AddDate(0, 0, -3),
	}
}
