package shopify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"esn-backend/application/ports"
	"esn-backend/domain/config"
	"esn-backend/domain/core/valueobjects"
	pkgerrors "esn-backend/pkg/errors"

	"go.uber.org/zap"
)

// staleObjectCode is the userError code for a compareDigest mismatch
const staleObjectCode = "STALE_OBJECT"

// UserErrors is returned when the mutation was rejected for reasons other
// than a stale digest
type UserErrors []UserError

func (e UserErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, ue := range e {
		if len(ue.Field) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", strings.Join(ue.Field, "."), ue.Message))
		} else {
			parts = append(parts, ue.Message)
		}
	}
	return "metafieldsSet rejected: " + strings.Join(parts, "; ")
}

// MetafieldStore implements ports.NetworkStore on a customer JSON metafield.
// The version token is the metafield's compareDigest.
type MetafieldStore struct {
	client    *GraphQLClient
	namespace string
	key       string
	valueType string
	logger    *zap.Logger
}

// NewMetafieldStore creates a store over the fixed namespace/key of cfg
func NewMetafieldStore(client *GraphQLClient, cfg *config.DomainConfig, logger *zap.Logger) *MetafieldStore {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &MetafieldStore{
		client:    client,
		namespace: cfg.MetafieldNamespace,
		key:       cfg.MetafieldKey,
		valueType: cfg.MetafieldType,
		logger:    logger,
	}
}

// Load reads the metafield. A missing metafield returns Exists=false.
func (s *MetafieldStore) Load(ctx context.Context, customerID valueobjects.CustomerID) (*ports.Document, error) {
	variables := map[string]interface{}{
		"namespace": s.namespace,
		"key":       s.key,
	}
	query := customerAccountReadQuery
	if s.client.Mode() == ModeAdmin {
		query = adminReadQuery
		variables["id"] = customerID.String()
	}

	var resp readResponse
	if err := s.client.Do(ctx, query, variables, &resp); err != nil {
		return nil, err
	}

	if resp.Customer == nil {
		return nil, pkgerrors.NewNotFoundError("customer " + customerID.String())
	}
	if resp.Customer.ID != "" && resp.Customer.ID != customerID.String() {
		return nil, pkgerrors.NewForbiddenError("access token belongs to a different customer")
	}

	doc := &ports.Document{CustomerID: customerID}
	if mf := resp.Customer.Metafield; mf != nil {
		doc.Exists = true
		doc.Value = []byte(mf.Value)
		doc.Version = mf.CompareDigest
	}
	return doc, nil
}

// Save writes the whole value with metafieldsSet, guarded by compareDigest
func (s *MetafieldStore) Save(ctx context.Context, customerID valueobjects.CustomerID, value []byte, expectedVersion string) (string, error) {
	var compareDigest interface{}
	if expectedVersion != "" {
		compareDigest = expectedVersion
	}

	variables := map[string]interface{}{
		"metafields": []map[string]interface{}{
			{
				"ownerId":       customerID.String(),
				"namespace":     s.namespace,
				"key":           s.key,
				"type":          s.valueType,
				"value":         string(value),
				"compareDigest": compareDigest,
			},
		},
	}

	var resp setResponse
	if err := s.client.Do(ctx, setMetafieldMutation, variables, &resp); err != nil {
		return "", err
	}

	if userErrs := resp.MetafieldsSet.UserErrors; len(userErrs) > 0 {
		return "", s.mapUserErrors(customerID, userErrs)
	}

	for _, mf := range resp.MetafieldsSet.Metafields {
		if mf.Key == s.key {
			return mf.CompareDigest, nil
		}
	}
	if len(resp.MetafieldsSet.Metafields) > 0 {
		return resp.MetafieldsSet.Metafields[0].CompareDigest, nil
	}

	return "", pkgerrors.NewExternalError("shopify", errors.New("metafieldsSet returned no metafield"))
}

// mapUserErrors turns a stale digest into a version conflict and anything
// else into a validation error listing every field/message pair
func (s *MetafieldStore) mapUserErrors(customerID valueobjects.CustomerID, userErrs []UserError) error {
	for _, ue := range userErrs {
		if ue.Code == staleObjectCode {
			s.logger.Debug("Metafield digest is stale",
				zap.String("customerID", customerID.String()),
				zap.String("message", ue.Message),
			)
			return ports.NewVersionConflictError(customerID)
		}
	}

	details := make([]map[string]interface{}, 0, len(userErrs))
	for _, ue := range userErrs {
		details = append(details, map[string]interface{}{
			"field":   ue.Field,
			"message": ue.Message,
			"code":    ue.Code,
		})
	}

	s.logger.Warn("Metafield write rejected",
		zap.String("customerID", customerID.String()),
		zap.Any("userErrors", details),
	)

	typed := UserErrors(userErrs)
	return pkgerrors.NewUnprocessableError(typed.Error()).
		WithCode("USER_ERRORS").
		WithDetails(map[string]interface{}{"userErrors": details}).
		WithCause(typed)
}
