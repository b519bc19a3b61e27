package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

var _ Repository = (*BunRepository)(nil)

// DatabaseConfig is loaded with the DATABASE prefix.
type DatabaseConfig struct {
	URL          string        `envconfig:"URL" split_words:"true" required:"true"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"10s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"10s"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"10"`
}

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID      int64  `bun:"id,pk"`
	Context string `bun:"context,notnull,default:''"`
}

type cartItemRow struct {
	bun.BaseModel `bun:"table:cart_items,alias:ci"`

	ID     int64  `bun:"id,pk,autoincrement"`
	UserID int64  `bun:"user_id,notnull"`
	Item   string `bun:"item,notnull"`
	Amount int    `bun:"amount,notnull"`
}

// BunRepository stores users and cart lines in Postgres. Writes that may
// create a row are upserts; removals lock the row with SELECT ... FOR UPDATE.
type BunRepository struct {
	db *bun.DB
}

func OpenBunRepository(ctx context.Context, cfg DatabaseConfig) (*BunRepository, error) {
	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.URL),
		pgdriver.WithDialTimeout(cfg.DialTimeout),
		pgdriver.WithReadTimeout(cfg.ReadTimeout),
		pgdriver.WithWriteTimeout(cfg.WriteTimeout),
	)
	sqldb := sql.OpenDB(connector)
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	repo := NewBunRepository(bun.NewDB(sqldb, pgdialect.New()))
	if err := repo.Ping(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := repo.Migrate(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{db: db}
}

// Migrate creates the tables and the (user_id, item) unique index.
func (r *BunRepository) Migrate(ctx context.Context) error {
	models := []any{(*userRow)(nil), (*cartItemRow)(nil)}
	for _, model := range models {
		if _, err := r.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	if _, err := r.db.NewCreateIndex().
		Model((*cartItemRow)(nil)).
		Unique().
		IfNotExists().
		Index("cart_items_user_item_idx").
		Column("user_id", "item").
		Exec(ctx); err != nil {
		return fmt.Errorf("create cart index: %w", err)
	}
	return nil
}

func (r *BunRepository) Cart(ctx context.Context, userID int64) ([]LineItem, error) {
	var rows []cartItemRow
	if err := r.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		OrderExpr("id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}

	items := make([]LineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, LineItem{Item: row.Item, Amount: row.Amount})
	}
	return items, nil
}

func (r *BunRepository) Context(ctx context.Context, userID int64) (string, bool, error) {
	var row userRow
	err := r.db.NewSelect().Model(&row).Where("id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read context: %w", err)
	}
	return row.Context, true, nil
}

// AddItem upserts on (user_id, item) so two first-time adds serialize on the
// unique index instead of both inserting.
func (r *BunRepository) AddItem(ctx context.Context, userID int64, item string, amount int) error {
	if !validItem(item) {
		return fmt.Errorf("%w: item is empty", ErrInvalid)
	}

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := &cartItemRow{UserID: userID, Item: item, Amount: amount}
		if _, err := tx.NewInsert().
			Model(row).
			On("CONFLICT (user_id, item) DO UPDATE").
			Set("amount = ?TableAlias.amount + EXCLUDED.amount").
			Returning("id, amount").
			Exec(ctx); err != nil {
			return fmt.Errorf("upsert cart item: %w", err)
		}

		if row.Amount <= 0 {
			return deleteCartItem(ctx, tx, row)
		}
		return nil
	})
}

func (r *BunRepository) RemoveItem(ctx context.Context, userID int64, item string, amount int) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row, err := lockCartItem(ctx, tx, userID, item)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: item %q not in cart", ErrNotFound, item)
		}
		if err != nil {
			return err
		}

		if amount >= row.Amount {
			return deleteCartItem(ctx, tx, row)
		}
		row.Amount -= amount
		return updateCartItem(ctx, tx, row)
	})
}

func (r *BunRepository) ClearCart(ctx context.Context, userID int64) error {
	res, err := r.db.NewDelete().Model((*cartItemRow)(nil)).Where("user_id = ?", userID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: cart is empty", ErrNotFound)
	}
	return nil
}

func (r *BunRepository) AppendContext(ctx context.Context, userID int64, text string) error {
	return upsertUser(ctx, r.db, userID, text, "context = ?TableAlias.context || ' ' || EXCLUDED.context")
}

func (r *BunRepository) ReplaceContext(ctx context.Context, userID int64, text string) error {
	return upsertUser(ctx, r.db, userID, text, "context = EXCLUDED.context")
}

func (r *BunRepository) ClearContext(ctx context.Context, userID int64) error {
	res, err := r.db.NewDelete().Model((*userRow)(nil)).Where("id = ?", userID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("clear context: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return nil
}

func (r *BunRepository) ClearUser(ctx context.Context, userID int64) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*userRow)(nil)).Where("id = ?", userID).Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		if _, err := tx.NewDelete().Model((*cartItemRow)(nil)).Where("user_id = ?", userID).Exec(ctx); err != nil {
			return fmt.Errorf("delete cart: %w", err)
		}
		return nil
	})
}

func (r *BunRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *BunRepository) Close() error {
	return r.db.Close()
}

func lockCartItem(ctx context.Context, tx bun.Tx, userID int64, item string) (*cartItemRow, error) {
	row := new(cartItemRow)
	err := tx.NewSelect().
		Model(row).
		Where("user_id = ?", userID).
		Where("item = ?", item).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("select cart item: %w", err)
	}
	return row, nil
}

func updateCartItem(ctx context.Context, tx bun.Tx, row *cartItemRow) error {
	if _, err := tx.NewUpdate().Model(row).Column("amount").WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return nil
}

func deleteCartItem(ctx context.Context, tx bun.Tx, row *cartItemRow) error {
	if _, err := tx.NewDelete().Model(row).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

// upsertUser writes the user row in one statement; set decides how an
// existing context is combined with text.
func upsertUser(ctx context.Context, db bun.IDB, userID int64, text, set string) error {
	if _, err := db.NewInsert().
		Model(&userRow{ID: userID, Context: text}).
		On("CONFLICT (id) DO UPDATE").
		Set(set).
		Exec(ctx); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
