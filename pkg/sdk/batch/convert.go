package batch

import (
	"github.com/pulsekit/pulsekit/pkg/sdk/record"
	"github.com/pulsekit/pulsekit/pkg/wire"
)

// toWire maps a record variant onto the wire row shape. Identity, group
// and revenue records become event-shaped rows; this is the only place
// cross-kind structure is imposed.
func toWire(r record.Record) wire.Record {
	switch v := r.(type) {
	case record.Event:
		return wire.Record{
			Timestamp: v.Time,
			Kind:      wire.EventTrack,
			Subject:   v.UserID,
			Body: map[string]any{
				"name":       v.Name,
				"category":   v.Category,
				"properties": v.Properties,
			},
		}
	case record.Identity:
		return wire.Record{
			Timestamp: v.Time,
			Kind:      wire.EventIdentify,
			Subject:   v.UserID,
			Body: map[string]any{
				"name":       "user_identified",
				"properties": v.Traits,
			},
		}
	case record.Group:
		props := make(map[string]any, len(v.Properties)+1)
		for k, val := range v.Properties {
			props[k] = val
		}
		props["group_id"] = v.GroupID
		return wire.Record{
			Timestamp: v.Time,
			Kind:      wire.EventGroup,
			Subject:   v.UserID,
			Body: map[string]any{
				"name":       "group_joined",
				"properties": props,
			},
		}
	case record.Revenue:
		products := make([]map[string]any, 0, len(v.Products))
		for _, p := range v.Products {
			products = append(products, map[string]any{
				"id":       p.ID,
				"name":     p.Name,
				"price":    p.Price,
				"quantity": p.Quantity,
			})
		}
		props := make(map[string]any, len(v.Properties)+5)
		for k, val := range v.Properties {
			props[k] = val
		}
		props["order_id"] = v.OrderID
		props["amount"] = v.Amount
		props["currency"] = v.Currency
		props["revenue_type"] = v.RevenueType
		props["products"] = products
		return wire.Record{
			Timestamp: v.Time,
			Kind:      wire.EventTrack,
			Subject:   v.UserID,
			Body: map[string]any{
				"name":       "revenue",
				"properties": props,
			},
		}
	case record.LogEntry:
		return wire.Record{
			Timestamp: v.Time,
			Kind:      wire.LogCollect,
			Subject:   v.UserID,
			Body: map[string]any{
				"level":      uint8(v.Level),
				"service":    v.Service,
				"message":    v.Message,
				"source":     v.Source,
				"context_id": v.ContextID,
				"fields":     v.Fields,
			},
		}
	default:
		return wire.Record{
			Timestamp: r.Timestamp(),
			Kind:      wire.EventUnknown,
			Subject:   r.Subject(),
		}
	}
}
