package postgresadapter

import (
	"context"
	"errors"
	"strings"
	"time"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	domainerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"
	"ranklist/contexts/list-moderation/review-pipeline/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const settingsRowID = 1

type listEntryModel struct {
	ID       string `gorm:"column:id;primaryKey"`
	ListID   string `gorm:"column:list_id;primaryKey"`
	Name     string `gorm:"column:name"`
	Position int    `gorm:"column:position"`
	Legacy   bool   `gorm:"column:legacy"`
	Archived bool   `gorm:"column:archived"`
}

func (listEntryModel) TableName() string {
	return "list_entries"
}

type userStandingModel struct {
	UserID       string     `gorm:"column:user_id;primaryKey"`
	BanLevel     int        `gorm:"column:ban_level"`
	BoostedUntil *time.Time `gorm:"column:boosted_until"`
	DiscordID    *string    `gorm:"column:discord_id"`
}

func (userStandingModel) TableName() string {
	return "user_standing"
}

type userPermissionModel struct {
	UserID     string `gorm:"column:user_id;primaryKey"`
	Permission string `gorm:"column:permission;primaryKey"`
}

func (userPermissionModel) TableName() string {
	return "user_permissions"
}

type settingsModel struct {
	ID                 int  `gorm:"column:id;primaryKey"`
	SubmissionsEnabled bool `gorm:"column:submissions_enabled"`
}

func (settingsModel) TableName() string {
	return "moderation_settings"
}

type notificationModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	UserID    string    `gorm:"column:user_id;index"`
	Message   string    `gorm:"column:message"`
	Severity  string    `gorm:"column:severity"`
	Seen      bool      `gorm:"column:seen"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (notificationModel) TableName() string {
	return "notifications"
}

// Directory answers the collaborator lookups the pipeline consumes from
// tables owned by other parts of the site: entries, standing, permissions and
// the global submission switch.
type Directory struct {
	db    *gorm.DB
	clock ports.Clock
}

func NewDirectory(db *gorm.DB, clock ports.Clock) *Directory {
	return &Directory{db: db, clock: clock}
}

func (d *Directory) GetEntry(ctx context.Context, listID string, entryID string) (entities.ListEntry, error) {
	var row listEntryModel
	err := d.db.WithContext(ctx).
		Where("list_id = ? AND id = ?", listID, strings.TrimSpace(entryID)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ListEntry{}, domainerrors.ErrEntryNotFound
		}
		return entities.ListEntry{}, wrapStorage(err)
	}
	return entities.ListEntry{
		EntryID:  row.ID,
		ListID:   row.ListID,
		Name:     row.Name,
		Position: row.Position,
		Legacy:   row.Legacy,
		Archived: row.Archived,
	}, nil
}

func (d *Directory) HasPermission(ctx context.Context, userID string, permission string) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).
		Model(&userPermissionModel{}).
		Where("user_id = ? AND permission = ?", strings.TrimSpace(userID), permission).
		Count(&count).Error; err != nil {
		return false, wrapStorage(err)
	}
	return count > 0, nil
}

func (d *Directory) BanTier(ctx context.Context, userID string) (entities.BanTier, error) {
	standing, found, err := d.standing(ctx, userID)
	if err != nil || !found {
		return 0, err
	}
	return entities.BanTier(standing.BanLevel), nil
}

// PriorityTier is 1 while the user's queue boost is active, else 0.
func (d *Directory) PriorityTier(ctx context.Context, userID string) (int, error) {
	standing, found, err := d.standing(ctx, userID)
	if err != nil || !found || standing.BoostedUntil == nil {
		return 0, err
	}
	now := time.Now().UTC()
	if d.clock != nil {
		now = d.clock.Now().UTC()
	}
	if standing.BoostedUntil.After(now) {
		return 1, nil
	}
	return 0, nil
}

// SubmissionsEnabled defaults to true when the settings row is missing.
func (d *Directory) SubmissionsEnabled(ctx context.Context) (bool, error) {
	var rows []settingsModel
	if err := d.db.WithContext(ctx).
		Where("id = ?", settingsRowID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return false, wrapStorage(err)
	}
	if len(rows) == 0 {
		return true, nil
	}
	return rows[0].SubmissionsEnabled, nil
}

// DiscordID returns the Discord account linked on the user's standing row.
func (d *Directory) DiscordID(ctx context.Context, userID string) (string, bool, error) {
	standing, found, err := d.standing(ctx, userID)
	if err != nil || !found {
		return "", false, err
	}
	discordID := strings.TrimSpace(derefString(standing.DiscordID))
	return discordID, discordID != "", nil
}

func (d *Directory) standing(ctx context.Context, userID string) (userStandingModel, bool, error) {
	var rows []userStandingModel
	if err := d.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Limit(1).
		Find(&rows).Error; err != nil {
		return userStandingModel{}, false, wrapStorage(err)
	}
	if len(rows) == 0 {
		return userStandingModel{}, false, nil
	}
	return rows[0], true, nil
}

// NotificationInbox stores user notifications in the site's inbox table.
type NotificationInbox struct {
	db    *gorm.DB
	clock ports.Clock
}

func NewNotificationInbox(db *gorm.DB, clock ports.Clock) *NotificationInbox {
	return &NotificationInbox{db: db, clock: clock}
}

func (n *NotificationInbox) Notify(ctx context.Context, userID string, message string, severity entities.Severity) error {
	now := time.Now().UTC()
	if n.clock != nil {
		now = n.clock.Now().UTC()
	}
	row := notificationModel{
		ID:        uuid.NewString(),
		UserID:    strings.TrimSpace(userID),
		Message:   message,
		Severity:  string(severity),
		CreatedAt: now,
	}
	return wrapStorage(n.db.WithContext(ctx).Create(&row).Error)
}
