package database

import (
	"database/sql"
	"log"
	"sync"

	"github.com/tgfc/fanops/cache"

	"github.com/tgfc/fanops/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		newCache, errCache := cache.NewCache()
		if errCache != nil {
			// A dead cache is not fatal, reads fall through to postgres.
			log.Printf("cache initialization error ❌: %v", errCache)
			newCache = nil
		}
		instance = &Datasource{Conn: con, Cache: newCache}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	err = createWorkItemTable(db)
	if err != nil {
		return nil, err
	}
	err = createStatusEventTable(db)
	if err != nil {
		return nil, err
	}
	err = createCommunicationTable(db)
	if err != nil {
		return nil, err
	}
	err = createWebhookEventTable(db)
	if err != nil {
		return nil, err
	}
	err = createDomainFilterTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createWorkItemTable creates a PostgreSQL table for the WorkItem struct
func createWorkItemTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS work_items (
			id SERIAL PRIMARY KEY,
			work_item_id TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			source TEXT NOT NULL,
			title TEXT,
			status TEXT NOT NULL,
			shopify_order_id TEXT UNIQUE,
			shopify_order_number TEXT,
			design_fee_order_id TEXT UNIQUE,
			design_fee_order_number TEXT,
			customer_email TEXT,
			customer_name TEXT,
			alternate_emails TEXT[] NOT NULL DEFAULT '{}',
			customer_id TEXT,
			quantity INTEGER NOT NULL DEFAULT 0,
			grip_color TEXT,
			event_date TIMESTAMP,
			closed_at TIMESTAMP,
			is_waiting BOOLEAN NOT NULL DEFAULT FALSE,
			next_follow_up_at TIMESTAMP,
			last_contact_at TIMESTAMP,
			reason_included JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	log.Println(err)
	return err
}

// createStatusEventTable creates a PostgreSQL table for the StatusEvent struct
func createStatusEventTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS work_item_status_events (
			id SERIAL PRIMARY KEY,
			event_id TEXT NOT NULL UNIQUE,
			work_item_id TEXT NOT NULL REFERENCES work_items(work_item_id),
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			note TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	log.Println(err)
	return err
}

// createCommunicationTable creates a PostgreSQL table for the Communication struct
func createCommunicationTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS communications (
			id SERIAL PRIMARY KEY,
			communication_id TEXT NOT NULL UNIQUE,
			direction TEXT NOT NULL,
			from_email TEXT,
			to_emails TEXT[] NOT NULL DEFAULT '{}',
			subject TEXT,
			body_html TEXT,
			body_preview TEXT,
			received_at TIMESTAMP,
			sent_at TIMESTAMP,
			provider_message_id TEXT UNIQUE,
			internet_message_id TEXT,
			provider_thread_id TEXT,
			work_item_id TEXT REFERENCES work_items(work_item_id),
			triage_status TEXT NOT NULL DEFAULT 'untriaged',
			category TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	log.Println(err)
	return err
}

// createWebhookEventTable creates a PostgreSQL table for the WebhookEvent struct.
// The unique (provider, external_event_id) pair is the sole concurrency guard
// for duplicate deliveries.
func createWebhookEventTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS webhook_events (
			id SERIAL PRIMARY KEY,
			webhook_event_id TEXT NOT NULL UNIQUE,
			provider TEXT NOT NULL,
			external_event_id TEXT NOT NULL,
			topic TEXT,
			processing_status TEXT NOT NULL DEFAULT 'pending',
			retry_count INTEGER NOT NULL DEFAULT 0,
			payload JSONB,
			processing_error TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (provider, external_event_id)
		)
	`)
	log.Println(err)
	return err
}

// createDomainFilterTable creates a PostgreSQL table for the DomainFilter struct
func createDomainFilterTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS domain_filters (
			id SERIAL PRIMARY KEY,
			filter_id TEXT NOT NULL UNIQUE,
			domain TEXT NOT NULL UNIQUE,
			category TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	log.Println(err)
	return err
}
