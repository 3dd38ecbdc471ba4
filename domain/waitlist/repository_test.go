package waitlist

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/miniquinox/billsync/internal/models"
	apperrors "github.com/miniquinox/billsync/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestWaitlistRepository_CreateEntry(t *testing.T) {
	insert := regexp.QuoteMeta(`INSERT INTO "waitlist" ("name","email","company","created_at") VALUES ($1,$2,$3,$4) RETURNING "id"`)

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantID  uint
		wantErr bool
	}{
		{
			name: "inserts one row in a transaction",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(insert).
					WithArgs("Ada", "ada@example.com", "Engines", sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
				mock.ExpectCommit()
			},
			wantID: 5,
		},
		{
			name: "driver error rolls back",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(insert).
					WillReturnError(errors.New("connection reset by peer"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqlDB, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer sqlDB.Close()

			db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
			require.NoError(t, err)

			tt.mock(mock)

			entry, err := NewWaitlistRepository(db).CreateEntry(context.Background(), &models.WaitlistEntry{
				Name:    "Ada",
				Email:   "ada@example.com",
				Company: "Engines",
			})

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, entry)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDatabaseError))
				assert.Equal(t, "unable to create waitlist entry", apperrors.GetHumanReadableMessage(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, entry.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
