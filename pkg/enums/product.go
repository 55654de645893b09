package enums

import "fmt"

// ProductCategory buckets catalog items for filtering and reporting.
type ProductCategory string

const (
	ProductCategoryBread       ProductCategory = "bread"
	ProductCategoryPastry      ProductCategory = "pastry"
	ProductCategoryCake        ProductCategory = "cake"
	ProductCategorySandwich    ProductCategory = "sandwich"
	ProductCategoryBeverage    ProductCategory = "beverage"
	ProductCategoryIngredient  ProductCategory = "ingredient"
	ProductCategoryMerchandise ProductCategory = "merchandise"
	ProductCategoryOther       ProductCategory = "other"
)

var productCategories = map[ProductCategory]struct{}{
	ProductCategoryBread:       {},
	ProductCategoryPastry:      {},
	ProductCategoryCake:        {},
	ProductCategorySandwich:    {},
	ProductCategoryBeverage:    {},
	ProductCategoryIngredient:  {},
	ProductCategoryMerchandise: {},
	ProductCategoryOther:       {},
}

// String returns the literal enum value.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether c is a category the catalog accepts.
func (c ProductCategory) IsValid() bool {
	_, ok := productCategories[c]
	return ok
}

// ParseProductCategory types raw input, rejecting unknown categories.
func ParseProductCategory(value string) (ProductCategory, error) {
	category := ProductCategory(value)
	if !category.IsValid() {
		return "", fmt.Errorf("invalid product category %q", value)
	}
	return category, nil
}
