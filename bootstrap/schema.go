package bootstrap

const (
	// DBOrders is the database of the order service.
	DBOrders = "orders_db"
	// DBMenu is the database of the menu service.
	DBMenu = "menu_db"

	// collOrders holds the placed orders.
	collOrders = "orders"
	// collMenuItems holds the items of the menu.
	collMenuItems = "menu_items"

	// userOrderService is the user the order service authenticates as.
	userOrderService = "orderservice"
	// userMenuService is the user the menu service authenticates as.
	userMenuService = "menuservice"
)

// IndexTable maps a logical database's name to the indexes that must exist in
// it.
type IndexTable map[string][]IndexSpec

// Specs returns the indexes declared for db in order. Databases without an
// entry have no indexes.
func (t IndexTable) Specs(db string) []IndexSpec {
	specs := make([]IndexSpec, len(t[db]))
	copy(specs, t[db])
	return specs
}

// asc returns a single ascending index on path.
func asc(coll, path string) IndexSpec {
	return IndexSpec{Collection: coll, Fields: []IndexField{{Path: path, Direction: DirectionAsc}}}
}

// desc returns a single descending index on path.
func desc(coll, path string) IndexSpec {
	return IndexSpec{Collection: coll, Fields: []IndexField{{Path: path, Direction: DirectionDesc}}}
}

// DefaultIndexTable returns the indexes of the food ordering services.
//
// We return a map literal instead of using a global variable because tests
// modify the returned specs to provoke conflicts.
func DefaultIndexTable() IndexTable {
	return IndexTable{
		DBOrders: {
			asc(collOrders, "user_id"),
			asc(collOrders, "status"),
			desc(collOrders, "timestamps.created"),
			asc(collOrders, "items.menu_item_id"),
			asc(collOrders, "delivery_address.city"),
		},
		DBMenu: {
			asc(collMenuItems, "category"),
			asc(collMenuItems, "available"),
			asc(collMenuItems, "tags"),
			asc(collMenuItems, "price"),
		},
	}
}

// DefaultConfiguration returns the logical databases of the food ordering
// services. Both services get read and write access to their own database.
func DefaultConfiguration(orderSecret, menuSecret string) []LogicalDatabase {
	table := DefaultIndexTable()
	return []LogicalDatabase{
		{
			Name: DBOrders,
			Credential: ServiceCredential{
				Username:    userOrderService,
				Secret:      orderSecret,
				Permissions: Permissions{PermissionRead, PermissionWrite},
			},
			Indexes: table.Specs(DBOrders),
		},
		{
			Name: DBMenu,
			Credential: ServiceCredential{
				Username:    userMenuService,
				Secret:      menuSecret,
				Permissions: Permissions{PermissionRead, PermissionWrite},
			},
			Indexes: table.Specs(DBMenu),
		},
	}
}
