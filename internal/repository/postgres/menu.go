package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/meistersol/bookingbot/internal/model"
	"github.com/meistersol/bookingbot/pkg/apperror"
)

func (r *menuRepository) Node(ctx context.Context, clientID, menuID int64, language string) (*model.MenuNode, error) {
	query := `
		SELECT menu_id, client_id, parent_menu_id, display_order, language,
			   menu_name, header_message, action
		FROM menus
		WHERE client_id = $1 AND language = $2 AND menu_id = $3
	`
	var node model.MenuNode
	err := r.db.GetContext(ctx, &node, query, clientID, language, menuID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("menu node", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu node: %w", err)
	}
	node.Action = model.ParseAction(node.RawAction)
	return &node, nil
}

func (r *menuRepository) Children(ctx context.Context, clientID, parentID int64, language string) ([]*model.MenuNode, error) {
	query := `
		SELECT menu_id, client_id, parent_menu_id, display_order, language,
			   menu_name, header_message, action
		FROM menus
		WHERE client_id = $1 AND language = $2 AND parent_menu_id = $3
		ORDER BY display_order ASC, menu_id ASC
	`
	var nodes []*model.MenuNode
	err := r.db.SelectContext(ctx, &nodes, query, clientID, language, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu children: %w", err)
	}
	for _, node := range nodes {
		node.Action = model.ParseAction(node.RawAction)
	}
	return nodes, nil
}

func (r *menuRepository) ListOptions(ctx context.Context, clientID, menuID int64, key, language string) ([]model.MenuOption, error) {
	query := `
		SELECT client_id,
			   $1::bigint AS menu_id,
			   item_id::text AS item_id,
			   value_name AS label
		FROM list_items
		WHERE client_id = $2 AND key_name = $3 AND language = $4
		ORDER BY display_order ASC
		LIMIT 10
	`
	var options []model.MenuOption
	err := r.db.SelectContext(ctx, &options, query, menuID, clientID, key, language)
	if err != nil {
		return nil, fmt.Errorf("failed to list options for key %s: %w", key, err)
	}
	return options, nil
}

func (r *menuRepository) ListValue(ctx context.Context, clientID int64, key, language string) (string, error) {
	query := `
		SELECT value_name
		FROM list_items
		WHERE client_id = $1 AND key_name = $2 AND language = $3
		ORDER BY display_order ASC
		LIMIT 1
	`
	var value string
	err := r.db.GetContext(ctx, &value, query, clientID, key, language)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperror.NotFound("list value", err)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get list value %s: %w", key, err)
	}
	return value, nil
}
