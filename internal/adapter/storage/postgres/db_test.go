package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"civic-ledger/config"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:            "db.internal",
		Port:            5433,
		User:            "ledger",
		Password:        "secret",
		DBName:          "sup_ledger",
		SSLMode:         "require",
		MaxConns:        12,
		MinConns:        3,
		ConnMaxLifetime: 15 * time.Minute,
	}

	pc, err := poolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
	assert.Equal(t, "sup_ledger", pc.ConnConfig.Database)
	assert.Equal(t, int32(12), pc.MaxConns)
	assert.Equal(t, int32(3), pc.MinConns)
	assert.Equal(t, 15*time.Minute, pc.MaxConnLifetime)
	assert.Equal(t, healthCheckPeriod, pc.HealthCheckPeriod)
	assert.Equal(t, applicationName, pc.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfig_ZeroSizesKeepDefaults(t *testing.T) {
	pc, err := poolConfig(config.DatabaseConfig{
		Host: "localhost", Port: 5432, User: "u", Password: "p", DBName: "d", SSLMode: "disable",
	})
	require.NoError(t, err)
	assert.Positive(t, pc.MaxConns)
}

func TestApplySchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE accounts").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCommit()

	require.NoError(t, ApplySchema(context.Background(), mock, "CREATE TABLE accounts (id UUID PRIMARY KEY)"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplySchema_RollsBackOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("relation already exists"))
	mock.ExpectRollback()

	err = ApplySchema(context.Background(), mock, "CREATE TABLE accounts (id UUID)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply schema")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_BeginsReadCommitted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})

	tx, err := NewTransactor(mock).Begin(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tx)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	hc := NewHealthCheck(mock)
	assert.Equal(t, "postgresql", hc.Name())

	mock.ExpectQuery("SELECT 1").WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
	assert.NoError(t, hc.Ping(context.Background()))

	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("connection refused"))
	assert.ErrorContains(t, hc.Ping(context.Background()), "postgres ping")
	assert.NoError(t, mock.ExpectationsWereMet())
}
