package memory

// Store bundles one instance of every in-memory repository
type Store struct {
	Catalog    *CatalogRepository
	Prices     *PriceRepository
	Contracts  *ContractRepository
	Subsidies  *SubsidyRepository
	Stock      *StockRepository
	Config     *ConfigRepository
	Identities *IdentityResolver
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		Catalog:    NewCatalogRepository(),
		Prices:     NewPriceRepository(),
		Contracts:  NewContractRepository(),
		Subsidies:  NewSubsidyRepository(),
		Stock:      NewStockRepository(),
		Config:     NewConfigRepository(),
		Identities: NewIdentityResolver(),
	}
}
