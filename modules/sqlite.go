// Package modules provides the read-only collaborator adapters the engine
// queries in other modules' stores. Adapters implement the narrow interfaces
// in core; the engine never touches a module's write API.
package modules

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"veritas/core"
)

// moduleTables maps each module to the table and id column its existence
// check reads. Fixed at compile time so table names never come from input.
var moduleTables = map[string]struct {
	table string
	idCol string
}{
	core.ModuleInventory:   {"products", "id"},
	core.ModuleSales:       {"orders", "id"},
	core.ModuleCRM:         {"customers", "id"},
	core.ModuleFinance:     {"ledger_entries", "id"},
	core.ModuleProduction:  {"work_orders", "id"},
	core.ModuleSupplyChain: {"purchase_orders", "id"},
	core.ModuleAnalytics:   {"reports", "id"},
	core.ModuleEcommerce:   {"listings", "id"},
}

// Store is a SQLite-backed view over the platform modules' data. One store
// can serve every collaborator interface; production deployments may point
// each module at its own database file instead.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// OpenStore opens (and if needed initializes) the module store at path.
// Use ":memory:" for tests.
func OpenStore(path string, logger *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open module store: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping module store: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			available_quantity REAL NOT NULL DEFAULT 0,
			minimum_stock REAL NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS orders (id TEXT PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (id TEXT PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS work_orders (id TEXT PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS purchase_orders (id TEXT PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS reports (id TEXT PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS listings (id TEXT PRIMARY KEY)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize module store schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return core.ErrStoreClosed
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// GetProductWithInventory implements core.InventoryReader.
func (s *Store) GetProductWithInventory(ctx context.Context, productID string) (*core.ProductInventory, error) {
	if s.db == nil {
		return nil, core.ErrStoreClosed
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, available_quantity, minimum_stock FROM products WHERE id = ?`, productID)

	var product core.ProductInventory
	err := row.Scan(&product.ProductID, &product.Name, &product.AvailableQuantity, &product.MinimumStock)
	if err == sql.ErrNoRows {
		return nil, core.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read product %s: %w", productID, err)
	}
	return &product, nil
}

// CustomerExists implements core.CustomerReader.
func (s *Store) CustomerExists(ctx context.Context, customerID string) (bool, error) {
	if s.db == nil {
		return false, core.ErrStoreClosed
	}
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM customers WHERE id = ?`, customerID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check customer %s: %w", customerID, err)
	}
	return true, nil
}

// moduleReference is the generic existence check for one module's table.
type moduleReference struct {
	store *Store
	table string
	idCol string
}

// EntityExists implements core.ReferenceReader.
func (r *moduleReference) EntityExists(ctx context.Context, entityID string) (bool, error) {
	if r.store.db == nil {
		return false, core.ErrStoreClosed
	}
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE %s = ?`, r.table, r.idCol)
	var one int
	err := r.store.db.QueryRowContext(ctx, query, entityID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s entity %s: %w", r.table, entityID, err)
	}
	return true, nil
}

// ReferenceReaders returns an existence check per known module, for wiring
// into the cross-module checker.
func (s *Store) ReferenceReaders() map[string]core.ReferenceReader {
	readers := make(map[string]core.ReferenceReader, len(moduleTables))
	for module, mapping := range moduleTables {
		readers[module] = &moduleReference{store: s, table: mapping.table, idCol: mapping.idCol}
	}
	return readers
}

// Fixture helpers below let module owners and tests seed the store. The
// validation engine itself never calls them.

// UpsertProduct inserts or replaces a product's inventory record.
func (s *Store) UpsertProduct(ctx context.Context, product core.ProductInventory) error {
	if s.db == nil {
		return core.ErrStoreClosed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, name, available_quantity, minimum_stock) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name,
			available_quantity=excluded.available_quantity,
			minimum_stock=excluded.minimum_stock`,
		product.ProductID, product.Name, product.AvailableQuantity, product.MinimumStock)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", product.ProductID, err)
	}
	return nil
}

// InsertCustomer inserts a customer record.
func (s *Store) InsertCustomer(ctx context.Context, id, name, email string) error {
	if s.db == nil {
		return core.ErrStoreClosed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO customers (id, name, email) VALUES (?, ?, ?)`, id, name, email)
	if err != nil {
		return fmt.Errorf("failed to insert customer %s: %w", id, err)
	}
	return nil
}

// InsertEntity records a bare entity id in the named module's table.
func (s *Store) InsertEntity(ctx context.Context, module, entityID string) error {
	if s.db == nil {
		return core.ErrStoreClosed
	}
	mapping, ok := moduleTables[module]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownModule, module)
	}
	query := fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s) VALUES (?)`, mapping.table, mapping.idCol)
	if _, err := s.db.ExecContext(ctx, query, entityID); err != nil {
		return fmt.Errorf("failed to insert %s entity %s: %w", module, entityID, err)
	}
	return nil
}
