package domain

var Tables = []interface{}{
	// Rate catalog
	&InsProduct{},
	&InsPackage{},
	&InsBenefit{},
	&InsLimit{},
	&InsRiskFactor{},
	// Payment ledger
	&PaymentRecord{},
	&PaymentStatusLog{},
}
