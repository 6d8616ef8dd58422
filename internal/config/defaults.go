package config

import "github.com/ginjaninja78/order-reconciler/internal/types"

// at returns a column index fallback.
func at(i int) *int { return &i }

// col builds a mapping from a source header onto a canonical target.
func col(name, target string) ColumnMapping {
	return ColumnMapping{ColumnRef: ColumnRef{Name: name}, Target: target}
}

// required marks a mapping as required.
func required(m ColumnMapping) ColumnMapping {
	m.Required = true
	return m
}

// DefaultDateLayouts are the cancellation date formats seen in Flipkart exports.
var DefaultDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
	"02-01-2006 15:04:05",
	"02-01-2006",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"Jan 2, 2006 15:04:05",
	"2 Jan 2006",
}

// DefaultConfig returns the built-in configuration: directory layout,
// templates and the schema descriptors for every supported export.
func DefaultConfig() *MainConfig {
	return &MainConfig{
		InputDir:    "./InputDIR",
		OutputDir:   "./OutputDIR",
		TemplateDir: "./Template",
		LogLevel:    "info",
		DateLayouts: append([]string(nil), DefaultDateLayouts...),
		PDF: PDFSettings{
			CellGap:         8,
			MinTableColumns: 3,
		},
		Cancellation: defaultCancellation(),
		Pickup:       defaultPickup(),
		Returns:      defaultReturns(),
	}
}

func defaultCancellation() CancellationConfig {
	return CancellationConfig{
		Dir:          "CancellationReport",
		PickupDir:    "PickupReportfiles",
		ManifestFile: "Manifest.pdf",
		MeeshoLookup: SourceDescriptor{
			Name:    types.SourceMeeshoData,
			File:    "Meesho_data.csv",
			Channel: "Meesho",
			Columns: []ColumnMapping{
				required(col("Sub Order No", types.ColOrderID)),
				required(col("Reason for Credit Entry", types.ColStatus)),
				col("SKU", types.ColSKU),
				col("Quantity", types.ColQuantity),
				col("Supplier Listed Price (Incl. GST + Commission)", types.ColInvoiceAmount),
			},
		},
		CancelledStatus: "CANCELLED",
		FlipkartPattern: "*Flipkart*.csv",
		FlipkartCancel: FlipkartCancelColumns{
			Date:    ColumnRef{Name: "Order Cancellation Date", Index: at(0)},
			OrderID: ColumnRef{Name: "Order ID", Aliases: []string{"OrderID", "Order Id"}, Index: at(2)},
			Type:    ColumnRef{Name: "Cancellation Type", Index: at(5)},
		},
		FlipkartPickup: SourceDescriptor{
			Name: "Flipkart Pickup",
			File: "*",
			Columns: []ColumnMapping{
				required(ColumnMapping{
					ColumnRef: ColumnRef{Name: "Order ID", Aliases: []string{"OrderID", "Order Id"}, Index: at(3)},
					Target:    types.ColOrderID,
				}),
				required(col("Tracking ID", types.ColTrackingID)),
				col("SKU", types.ColSKU),
				col("Quantity", types.ColQuantity),
				col("Invoice Amount", types.ColInvoiceAmount),
			},
		},
		BuyerCancellation: "cancelled by buyer",
		LLMarker:          "LL",
		LLChannel:         "Flipkart LL",
		KCChannel:         "Flipkart KC",
		OutputFile:        "Cancel_product_report.xlsx",
		Sheet:             "Cancel products",
	}
}

func defaultPickup() PickupConfig {
	return PickupConfig{
		Dir:          "PickupReportfiles",
		ManifestFile: "Manifest.pdf",
		Sources: []PickupSource{
			{Name: "Sellerflex", File: "Sellerflex.csv", TrackingColumn: "Shipment Tracking ID", PivotGroup: "MSKU", PivotSum: "Units"},
			{Name: "Flipkart KC", File: "Flipkart KC.csv", TrackingColumn: "Tracking ID", PivotGroup: "SKU", PivotSum: "Quantity"},
			{Name: "Flipkart LL", File: "Flipkart LL.csv", TrackingColumn: "Tracking ID", PivotGroup: "SKU", PivotSum: "Quantity"},
		},
		ColumnLetters: map[string]string{
			"Sellerflex":            "A",
			"Flipkart KC":           "D",
			"Flipkart LL":           "E",
			"Meesho - Xpressbees":   "F",
			"Meesho - Ecom Express": "G",
			"Meesho - Delhivery":    "H",
			"Others":                "I",
		},
		KnownCouriers: []string{"Delhivery", "Ecom Express", "Xpressbees"},
		OthersBucket:  "Others",
		CourierPrefix: "Meesho - ",
		TemplateFile:  "Pickup Report.xlsx",
		Sheet:         "Entry tracking ID",
		StartRow:      3,
		DateCell:      "K1",
		OutputPattern: "Pickup_Report_%s.xlsx",
		PivotPattern:  "Pivot_Summary_%s.xlsx",
	}
}

func defaultReturns() ReturnsConfig {
	flipkart := func(name, file, channel string) SourceDescriptor {
		return SourceDescriptor{
			Name:    name,
			File:    file,
			Channel: channel,
			Columns: []ColumnMapping{
				required(col("Tracking ID", types.ColReturnTID)),
				{
					ColumnRef: ColumnRef{Name: "Return Type", Aliases: []string{"Return Type (Column W)"}},
					Target:    types.ColReturnType,
				},
				col("SKU", types.ColSKU),
				col("Quantity", types.ColUnits),
				col("Order ID", types.ColOID),
				col("Return Status", types.ColReturnStatus),
				col("Return Sub-reason", types.ColCxComment),
			},
			Constants: map[string]string{
				types.ColCourierPartner: "Ekart",
				types.ColForwardTID:     "",
			},
			Derived: []DerivedField{
				{Target: types.ColCxSubject, From: types.ColReturnType},
			},
		}
	}

	return ReturnsConfig{
		Dir: "Returnsreportfiles",
		Sources: []SourceDescriptor{
			{
				Name:    "Meesho",
				File:    "Returns Meesho.csv",
				Channel: "Meesho",
				CSV:     CSVSettings{SkipRows: 7},
				Columns: []ColumnMapping{
					required(col("AWB Number", types.ColReturnTID)),
					col("Type of Return", types.ColReturnType),
					col("SKU", types.ColSKU),
					col("Qty", types.ColUnits),
					col("Courier Partner", types.ColCourierPartner),
					col("Order Number", types.ColOID),
					col("Return Reason", types.ColCxSubject),
					col("Detailed Return Reason", types.ColCxComment),
				},
				Constants: map[string]string{
					types.ColForwardTID: "",
				},
			},
			flipkart("Flipkart KC", "Returns Flipkart KC.csv", "Flipkart KC"),
			flipkart("Flipkart LL", "Returns Flipkart LL.csv", "Flipkart LL"),
			{
				Name:    "SellerFlex",
				File:    "Returns SellerFlex.csv",
				Channel: "Amazon KC -flex",
				Columns: []ColumnMapping{
					required(col("Reverse Leg Tracking ID", types.ColReturnTID)),
					col("Return Type", types.ColReturnType),
					col("mSKU", types.ColSKU),
					col("Units", types.ColUnits),
					col("Customer Order ID", types.ColOID),
					col("Forward Leg Tracking ID", types.ColForwardTID),
					col("Return Status", types.ColReturnStatus),
				},
				Constants: map[string]string{
					types.ColCourierPartner: "ATSIN",
					types.ColCxSubject:      "",
					types.ColCxComment:      "",
				},
			},
		},
		TemplateFile: "ReturnsReconcileReport.xlsx",
		Sheet:        "Data",
		StartRow:     2,
		DateCells:    []string{"O7", "O8"},
		OutputFile:   "Returns Reconcile Report.xlsx",
	}
}
