// Package models defines the core data types shared across the crosscheck
// investigation engine: entities, relationships, requests, per-domain results,
// cross-entity analysis artifacts, and the final risk assessment.
package models

import "strconv"

// EntityType categorizes the subject of an investigation. The enumeration is
// closed but intentionally broad — fraud cases correlate many kinds of
// identifiers, instruments, and behavioral artifacts.
type EntityType string

// Core identity entity types.
const (
	EntityTypeUser             EntityType = "user"
	EntityTypeAccount          EntityType = "account"
	EntityTypeCustomer         EntityType = "customer"
	EntityTypeMerchant         EntityType = "merchant"
	EntityTypeEmployee         EntityType = "employee"
	EntityTypeDevice           EntityType = "device"
	EntityTypeSession          EntityType = "session"
	EntityTypeIPAddress        EntityType = "ip_address"
	EntityTypeEmailAddress     EntityType = "email_address"
	EntityTypePhoneNumber      EntityType = "phone_number"
	EntityTypePhysicalAddress  EntityType = "physical_address"
	EntityTypeIdentityDocument EntityType = "identity_document"
)

// Transaction entity types.
const (
	EntityTypeTransaction  EntityType = "transaction"
	EntityTypePayment      EntityType = "payment"
	EntityTypeCardPayment  EntityType = "card_payment"
	EntityTypeWireTransfer EntityType = "wire_transfer"
	EntityTypeACHTransfer  EntityType = "ach_transfer"
	EntityTypeRefund       EntityType = "refund"
	EntityTypeChargeback   EntityType = "chargeback"
	EntityTypeDeposit      EntityType = "deposit"
	EntityTypeWithdrawal   EntityType = "withdrawal"
	EntityTypeInvoice      EntityType = "invoice"
	EntityTypeOrder        EntityType = "order"
	EntityTypeSubscription EntityType = "subscription"
)

// Financial instrument entity types.
const (
	EntityTypeCard          EntityType = "card"
	EntityTypeBankAccount   EntityType = "bank_account"
	EntityTypeWallet        EntityType = "wallet"
	EntityTypeCryptoAddress EntityType = "crypto_address"
	EntityTypeLoan          EntityType = "loan"
	EntityTypeCreditLine    EntityType = "credit_line"
	EntityTypeCheck         EntityType = "check"
	EntityTypeGiftCard      EntityType = "gift_card"
)

// Network and technical entity types.
const (
	EntityTypeDomain             EntityType = "domain"
	EntityTypeURL                EntityType = "url"
	EntityTypeUserAgent          EntityType = "user_agent"
	EntityTypeBrowserFingerprint EntityType = "browser_fingerprint"
	EntityTypeDeviceFingerprint  EntityType = "device_fingerprint"
	EntityTypeMACAddress         EntityType = "mac_address"
	EntityTypeIMEI               EntityType = "imei"
	EntityTypeSIMCard            EntityType = "sim_card"
	EntityTypeWifiNetwork        EntityType = "wifi_network"
	EntityTypeVPNEndpoint        EntityType = "vpn_endpoint"
)

// Business entity types.
const (
	EntityTypeBusiness           EntityType = "business"
	EntityTypeTaxID              EntityType = "tax_id"
	EntityTypeRegistrationNumber EntityType = "registration_number"
	EntityTypeWebsite            EntityType = "website"
	EntityTypeStorefront         EntityType = "storefront"
	EntityTypeTerminal           EntityType = "terminal"
	EntityTypePOSDevice          EntityType = "pos_device"
	EntityTypeAPIKey             EntityType = "api_key"
)

// Extended behavioral entity types.
const (
	EntityTypeLoginEvent     EntityType = "login_event"
	EntityTypeLocation       EntityType = "location"
	EntityTypeGeoCluster     EntityType = "geo_cluster"
	EntityTypeDocument       EntityType = "document"
	EntityTypeImage          EntityType = "image"
	EntityTypeSocialProfile  EntityType = "social_profile"
	EntityTypeReferralCode   EntityType = "referral_code"
	EntityTypePromoCode      EntityType = "promo_code"
	EntityTypeSupportTicket  EntityType = "support_ticket"
	EntityTypeWatchlistEntry EntityType = "watchlist_entry"
)

var validEntityTypes = map[EntityType]struct{}{
	EntityTypeUser: {}, EntityTypeAccount: {}, EntityTypeCustomer: {},
	EntityTypeMerchant: {}, EntityTypeEmployee: {}, EntityTypeDevice: {},
	EntityTypeSession: {}, EntityTypeIPAddress: {}, EntityTypeEmailAddress: {},
	EntityTypePhoneNumber: {}, EntityTypePhysicalAddress: {}, EntityTypeIdentityDocument: {},
	EntityTypeTransaction: {}, EntityTypePayment: {}, EntityTypeCardPayment: {},
	EntityTypeWireTransfer: {}, EntityTypeACHTransfer: {}, EntityTypeRefund: {},
	EntityTypeChargeback: {}, EntityTypeDeposit: {}, EntityTypeWithdrawal: {},
	EntityTypeInvoice: {}, EntityTypeOrder: {}, EntityTypeSubscription: {},
	EntityTypeCard: {}, EntityTypeBankAccount: {}, EntityTypeWallet: {},
	EntityTypeCryptoAddress: {}, EntityTypeLoan: {}, EntityTypeCreditLine: {},
	EntityTypeCheck: {}, EntityTypeGiftCard: {},
	EntityTypeDomain: {}, EntityTypeURL: {}, EntityTypeUserAgent: {},
	EntityTypeBrowserFingerprint: {}, EntityTypeDeviceFingerprint: {},
	EntityTypeMACAddress: {}, EntityTypeIMEI: {}, EntityTypeSIMCard: {},
	EntityTypeWifiNetwork: {}, EntityTypeVPNEndpoint: {},
	EntityTypeBusiness: {}, EntityTypeTaxID: {}, EntityTypeRegistrationNumber: {},
	EntityTypeWebsite: {}, EntityTypeStorefront: {}, EntityTypeTerminal: {},
	EntityTypePOSDevice: {}, EntityTypeAPIKey: {},
	EntityTypeLoginEvent: {}, EntityTypeLocation: {}, EntityTypeGeoCluster: {},
	EntityTypeDocument: {}, EntityTypeImage: {}, EntityTypeSocialProfile: {},
	EntityTypeReferralCode: {}, EntityTypePromoCode: {}, EntityTypeSupportTicket: {},
	EntityTypeWatchlistEntry: {},
}

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	_, ok := validEntityTypes[t]
	return ok
}

// Entity is a uniquely-identified subject of investigation. Entities are
// immutable once the investigation starts.
type Entity struct {
	ID       string            `json:"id" validate:"required"`
	Type     EntityType        `json:"type" validate:"required"`
	RawValue string            `json:"raw_value" validate:"required"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ImportanceWeight returns the entity's declared aggregation weight from
// metadata["importance"], or 1.0 when absent or unparsable.
func (e Entity) ImportanceWeight() float64 {
	raw, ok := e.Metadata["importance"]
	if !ok {
		return 1.0
	}
	w, err := strconv.ParseFloat(raw, 64)
	if err != nil || w <= 0 {
		return 1.0
	}
	return w
}
