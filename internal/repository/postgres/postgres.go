package postgres

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/meistersol/bookingbot/internal/repository"
)

// DBConfig holds the connection parameters for the relational store.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// NewDB opens a sqlx connection pool against Postgres.
func NewDB(cfg DBConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

type clientRepository struct {
	db *sqlx.DB
}

type userRepository struct {
	db *sqlx.DB
}

type menuRepository struct {
	db *sqlx.DB
}

type pocRepository struct {
	db *sqlx.DB
}

type slotRepository struct {
	db *sqlx.DB
}

type appointmentRepository struct {
	db *sqlx.DB
}

type templateRepository struct {
	db *sqlx.DB
}

type transactionRepository struct {
	db *sqlx.DB
}

func NewClientRepository(db *sqlx.DB) repository.ClientRepository {
	return &clientRepository{db: db}
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func NewMenuRepository(db *sqlx.DB) repository.MenuRepository {
	return &menuRepository{db: db}
}

func NewPOCRepository(db *sqlx.DB) repository.POCRepository {
	return &pocRepository{db: db}
}

func NewSlotRepository(db *sqlx.DB) repository.SlotRepository {
	return &slotRepository{db: db}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewTemplateRepository(db *sqlx.DB) repository.TemplateRepository {
	return &templateRepository{db: db}
}

func NewTransactionRepository(db *sqlx.DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}
