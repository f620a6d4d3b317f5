package validators

import (
	pkgerrors "github.com/angelmondragon/shopwish-backend/pkg/errors"
)

// ValidateShopDomain accepts fully qualified shop hosts such as
// demo.myshopify.com.
func ValidateShopDomain(shop string) error {
	if err := validate.Var(shop, "required,fqdn"); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid shop domain").WithDetails(map[string]any{"shop": shop})
	}
	return nil
}
