package record

import (
	"strconv"
	"time"
)

// =============================================================================
// VENDOR PAYLOAD NORMALIZATION
// Converts one vendor-shaped JSON object into a canonical Record. This never
// fails: any unparseable sub-structure degrades to a default value for that
// field only.
// =============================================================================

// consumed lists the top-level vendor keys that map onto canonical fields.
// Everything else is preserved verbatim in Record.Extra.
var consumed = map[string]bool{
	"id": true, "clientId": true, "channelId": true, "channelOrderId": true,
	"supplierReference": true, "orderDate": true, "createDate": true,
	"date": true, "events": true, "trackingEvents": true, "status": true,
	"statusDescription": true, "deliveryInfo": true, "deliveryDetails": true,
	"delivery": true, "items": true, "courierName": true, "courier": true,
	"trackingNumber": true, "waybill": true, "trackingNo": true,
	"trackingUrl": true, "trackingURL": true,
}

// Normalize converts one vendor payload into a Record tagged with the given
// direction and source store name.
func Normalize(payload map[string]any, dir Direction, store string) *Record {
	rec := &Record{
		Direction: dir,
		Store:     store,
		Items:     []Item{},
	}
	if payload == nil {
		rec.Status = "Unknown"
		rec.OrderDate = timeNow().UTC()
		rec.StatusDate = timeNow().UTC()
		return rec
	}

	// Identity: client-supplied order id first, internal id as fallback.
	rec.ID = pickString(payload, "clientId", "id")
	rec.OrderID = pickString(payload, "id")
	rec.ChannelID = pickString(payload, "channelId", "channelOrderId", "supplierReference")
	rec.OrderDate = ParseCompact(pickString(payload, "orderDate", "createDate", "date"))

	rec.Status, rec.StatusDate = resolveStatus(payload)

	info := pickMap(payload, "deliveryInfo", "deliveryDetails", "delivery")
	if info == nil {
		info = payload
	}
	rec.CustomerName = pickString(info, "customer", "contactName", "name", "contact")
	rec.CustomerEmail = pickString(info, "email", "emailAddress")
	rec.Address = Address{
		Line1:      pickString(info, "addressLine1", "address1", "street"),
		Line2:      pickString(info, "addressLine2", "address2"),
		Suburb:     pickString(info, "suburb"),
		City:       pickString(info, "city", "town"),
		Province:   pickString(info, "province", "state", "region"),
		PostalCode: pickString(info, "postalCode", "postCode", "zip"),
		Country:    pickString(info, "country"),
	}

	rec.Courier = pickString(payload, "courierName")
	if rec.Courier == "" {
		if c := pickMap(payload, "courier"); c != nil {
			rec.Courier = pickString(c, "name", "courierName")
		}
	}
	rec.TrackingNumber = pickString(payload, "trackingNumber", "waybill", "trackingNo")
	rec.TrackingURL = pickString(payload, "trackingUrl", "trackingURL")

	for _, raw := range pickSlice(payload, "items") {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		rec.Items = append(rec.Items, Item{
			Name:     pickString(item, "name", "description", "itemName"),
			Quantity: pickInt(item, "qty", "quantity"),
			SKU:      pickString(item, "sku", "itemCode", "barcode"),
		})
	}

	for k, v := range payload {
		if consumed[k] {
			continue
		}
		if s := coerceString(v); s != "" {
			if rec.Extra == nil {
				rec.Extra = map[string]string{}
			}
			rec.Extra[k] = s
		}
	}

	return rec
}

// resolveStatus derives the status text and its timestamp. The most recent
// event by numeric timestamp wins; on a tie the first-seen event is kept.
// Payloads without an event list fall back to a flat status field, then to
// the literal "Unknown".
func resolveStatus(payload map[string]any) (string, time.Time) {
	events := pickSlice(payload, "events", "trackingEvents")
	var (
		best   map[string]any
		bestTS int64 = -1
	)
	for _, raw := range events {
		ev, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		ts := numericTimestamp(pickString(ev, "timeStamp", "timestamp", "date"))
		if ts > bestTS {
			best = ev
			bestTS = ts
		}
	}
	if best != nil {
		desc := pickString(best, "description", "statusDescription", "detail")
		if desc == "" {
			desc = "Unknown"
		}
		return desc, ParseCompact(pickString(best, "timeStamp", "timestamp", "date"))
	}

	status := pickString(payload, "statusDescription")
	if status == "" {
		if sub := pickMap(payload, "status"); sub != nil {
			status = pickString(sub, "description", "name")
		} else {
			status = pickString(payload, "status")
		}
	}
	if status == "" {
		status = "Unknown"
	}
	return status, timeNow().UTC()
}

// numericTimestamp reduces a compact timestamp string to a comparable
// integer. Shorter date-only values compare smaller than full timestamps of
// the same day, which matches the vendor's event ordering. Unparseable
// values rank lowest.
func numericTimestamp(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	if len(s) == len(compactDateLayout) {
		n *= 1_000_000
	}
	return n
}
