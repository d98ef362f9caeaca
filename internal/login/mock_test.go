package login

import (
	"context"
	"time"

	"github.com/udisondev/xilogin/internal/model"
)

// mockRepository мок для Repository в unit тестах.
// Незаданные функции возвращают нейтральные значения.
type mockRepository struct {
	AuthenticateFunc   func(ctx context.Context, login, password string) (*model.Account, error)
	TouchAccountFunc   func(ctx context.Context, accountID uint32) error
	LoginExistsFunc    func(ctx context.Context, login string) (bool, error)
	MaxAccountIDFunc   func(ctx context.Context) (uint32, error)
	CreateAccountFunc  func(ctx context.Context, id uint32, login, password string) error
	UpdatePasswordFunc func(ctx context.Context, accountID uint32, password string) error
	AccountStatusFunc  func(ctx context.Context, accountID uint32) (model.AccountStatus, bool, error)
	EntitlementsFunc   func(ctx context.Context, accountID uint32) (*model.Entitlements, error)
	ContentIDsFunc     func(ctx context.Context, accountID uint32) (uint32, error)
	HasGMCharacterFunc func(ctx context.Context, accountID uint32) (bool, error)
	IPExceptionFunc    func(ctx context.Context, accountID uint32) (time.Time, error)

	CharacterIDsFunc        func(ctx context.Context) ([]uint32, error)
	NameExistsFunc          func(ctx context.Context, name string) (bool, error)
	RosterFunc              func(ctx context.Context, accountID uint32, limit int) ([]model.RosterEntry, error)
	CreateCharacterFunc     func(ctx context.Context, accountID, characterID uint32, name string, c model.NewCharacter, cutscene bool) error
	SoftDeleteCharacterFunc func(ctx context.Context, accountID, characterID uint32) (bool, error)
	ZoneAssignmentFunc      func(ctx context.Context, accountID, characterID uint32) (*model.ZoneAssignment, error)
	SetPreviousZoneFunc     func(ctx context.Context, characterID uint32, zoneID uint16) error

	DeleteSessionsFunc        func(ctx context.Context, accountID uint32) error
	SessionExistsFunc         func(ctx context.Context, accountID uint32) (bool, error)
	CountSessionsByClientFunc func(ctx context.Context, clientAddress uint32) (int, error)
	OpenSessionFunc           func(ctx context.Context, s model.AccountSession) error
	ClearSessionsFunc         func(ctx context.Context) (int64, error)
	RecordIPFunc              func(ctx context.Context, r model.IPRecord) error
}

var _ Repository = (*mockRepository)(nil)

func (m *mockRepository) Authenticate(ctx context.Context, login, password string) (*model.Account, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, login, password)
	}
	return nil, nil
}

func (m *mockRepository) TouchAccount(ctx context.Context, accountID uint32) error {
	if m.TouchAccountFunc != nil {
		return m.TouchAccountFunc(ctx, accountID)
	}
	return nil
}

func (m *mockRepository) LoginExists(ctx context.Context, login string) (bool, error) {
	if m.LoginExistsFunc != nil {
		return m.LoginExistsFunc(ctx, login)
	}
	return false, nil
}

func (m *mockRepository) MaxAccountID(ctx context.Context) (uint32, error) {
	if m.MaxAccountIDFunc != nil {
		return m.MaxAccountIDFunc(ctx)
	}
	return 0, nil
}

func (m *mockRepository) CreateAccount(ctx context.Context, id uint32, login, password string) error {
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, id, login, password)
	}
	return nil
}

func (m *mockRepository) UpdatePassword(ctx context.Context, accountID uint32, password string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, accountID, password)
	}
	return nil
}

func (m *mockRepository) AccountStatus(ctx context.Context, accountID uint32) (model.AccountStatus, bool, error) {
	if m.AccountStatusFunc != nil {
		return m.AccountStatusFunc(ctx, accountID)
	}
	return model.AccountStatusNormal, true, nil
}

func (m *mockRepository) Entitlements(ctx context.Context, accountID uint32) (*model.Entitlements, error) {
	if m.EntitlementsFunc != nil {
		return m.EntitlementsFunc(ctx, accountID)
	}
	return &model.Entitlements{Expansions: 4094, Features: 13}, nil
}

func (m *mockRepository) ContentIDs(ctx context.Context, accountID uint32) (uint32, error) {
	if m.ContentIDsFunc != nil {
		return m.ContentIDsFunc(ctx, accountID)
	}
	return 3, nil
}

func (m *mockRepository) HasGMCharacter(ctx context.Context, accountID uint32) (bool, error) {
	if m.HasGMCharacterFunc != nil {
		return m.HasGMCharacterFunc(ctx, accountID)
	}
	return false, nil
}

func (m *mockRepository) IPException(ctx context.Context, accountID uint32) (time.Time, error) {
	if m.IPExceptionFunc != nil {
		return m.IPExceptionFunc(ctx, accountID)
	}
	return time.Time{}, nil
}

func (m *mockRepository) CharacterIDs(ctx context.Context) ([]uint32, error) {
	if m.CharacterIDsFunc != nil {
		return m.CharacterIDsFunc(ctx)
	}
	return nil, nil
}

func (m *mockRepository) NameExists(ctx context.Context, name string) (bool, error) {
	if m.NameExistsFunc != nil {
		return m.NameExistsFunc(ctx, name)
	}
	return false, nil
}

func (m *mockRepository) Roster(ctx context.Context, accountID uint32, limit int) ([]model.RosterEntry, error) {
	if m.RosterFunc != nil {
		return m.RosterFunc(ctx, accountID, limit)
	}
	return nil, nil
}

func (m *mockRepository) CreateCharacter(ctx context.Context, accountID, characterID uint32, name string, c model.NewCharacter, cutscene bool) error {
	if m.CreateCharacterFunc != nil {
		return m.CreateCharacterFunc(ctx, accountID, characterID, name, c, cutscene)
	}
	return nil
}

func (m *mockRepository) SoftDeleteCharacter(ctx context.Context, accountID, characterID uint32) (bool, error) {
	if m.SoftDeleteCharacterFunc != nil {
		return m.SoftDeleteCharacterFunc(ctx, accountID, characterID)
	}
	return false, nil
}

func (m *mockRepository) ZoneAssignment(ctx context.Context, accountID, characterID uint32) (*model.ZoneAssignment, error) {
	if m.ZoneAssignmentFunc != nil {
		return m.ZoneAssignmentFunc(ctx, accountID, characterID)
	}
	return nil, nil
}

func (m *mockRepository) SetPreviousZone(ctx context.Context, characterID uint32, zoneID uint16) error {
	if m.SetPreviousZoneFunc != nil {
		return m.SetPreviousZoneFunc(ctx, characterID, zoneID)
	}
	return nil
}

func (m *mockRepository) DeleteSessions(ctx context.Context, accountID uint32) error {
	if m.DeleteSessionsFunc != nil {
		return m.DeleteSessionsFunc(ctx, accountID)
	}
	return nil
}

func (m *mockRepository) SessionExists(ctx context.Context, accountID uint32) (bool, error) {
	if m.SessionExistsFunc != nil {
		return m.SessionExistsFunc(ctx, accountID)
	}
	return false, nil
}

func (m *mockRepository) CountSessionsByClient(ctx context.Context, clientAddress uint32) (int, error) {
	if m.CountSessionsByClientFunc != nil {
		return m.CountSessionsByClientFunc(ctx, clientAddress)
	}
	return 0, nil
}

func (m *mockRepository) OpenSession(ctx context.Context, s model.AccountSession) error {
	if m.OpenSessionFunc != nil {
		return m.OpenSessionFunc(ctx, s)
	}
	return nil
}

func (m *mockRepository) ClearSessions(ctx context.Context) (int64, error) {
	if m.ClearSessionsFunc != nil {
		return m.ClearSessionsFunc(ctx)
	}
	return 0, nil
}

func (m *mockRepository) RecordIP(ctx context.Context, r model.IPRecord) error {
	if m.RecordIPFunc != nil {
		return m.RecordIPFunc(ctx, r)
	}
	return nil
}
