package login

import (
	"context"
	"time"

	"github.com/udisondev/xilogin/internal/model"
)

// AccountRepository определяет интерфейс для работы с аккаунтами.
// Используется для dependency injection в тестах.
type AccountRepository interface {
	// Authenticate возвращает аккаунт по логину и паролю.
	// Возвращает nil, nil если логин неизвестен или пароль не совпал.
	Authenticate(ctx context.Context, login, password string) (*model.Account, error)

	// TouchAccount обновляет timelastmodify при успешном логине.
	TouchAccount(ctx context.Context, accountID uint32) error

	LoginExists(ctx context.Context, login string) (bool, error)
	MaxAccountID(ctx context.Context) (uint32, error)
	CreateAccount(ctx context.Context, id uint32, login, password string) error
	UpdatePassword(ctx context.Context, accountID uint32, password string) error

	// AccountStatus возвращает found=false для неизвестного аккаунта.
	AccountStatus(ctx context.Context, accountID uint32) (model.AccountStatus, bool, error)

	// Entitlements возвращает nil, nil для неизвестного аккаунта.
	Entitlements(ctx context.Context, accountID uint32) (*model.Entitlements, error)

	ContentIDs(ctx context.Context, accountID uint32) (uint32, error)
	HasGMCharacter(ctx context.Context, accountID uint32) (bool, error)
	IPException(ctx context.Context, accountID uint32) (time.Time, error)
}

// CharacterRepository — персонажи на экране выбора.
type CharacterRepository interface {
	// CharacterIDs возвращает все занятые id по возрастанию.
	CharacterIDs(ctx context.Context) ([]uint32, error)
	NameExists(ctx context.Context, name string) (bool, error)
	Roster(ctx context.Context, accountID uint32, limit int) ([]model.RosterEntry, error)

	// CreateCharacter пишет персонажа одной транзакцией.
	// Ошибка старта транзакции оборачивает db.ErrBeginTx.
	CreateCharacter(ctx context.Context, accountID, characterID uint32, name string, c model.NewCharacter, cutscene bool) error

	SoftDeleteCharacter(ctx context.Context, accountID, characterID uint32) (bool, error)

	// ZoneAssignment возвращает nil, nil если персонаж или зона не найдены.
	ZoneAssignment(ctx context.Context, accountID, characterID uint32) (*model.ZoneAssignment, error)
	SetPreviousZone(ctx context.Context, characterID uint32, zoneID uint16) error
}

// SessionRepository — строки accounts_sessions, которые читают zone серверы.
type SessionRepository interface {
	DeleteSessions(ctx context.Context, accountID uint32) error
	SessionExists(ctx context.Context, accountID uint32) (bool, error)
	CountSessionsByClient(ctx context.Context, clientAddress uint32) (int, error)
	OpenSession(ctx context.Context, s model.AccountSession) error
	ClearSessions(ctx context.Context) (int64, error)
	RecordIP(ctx context.Context, r model.IPRecord) error
}

// Repository объединяет всё, что нужно обработчикам лобби. *db.DB его реализует.
type Repository interface {
	AccountRepository
	CharacterRepository
	SessionRepository
}
