package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type PackingSlipData struct {
	StoreName   string
	OrderNumber string
	OrderDate   string

	ShipToName    string
	ShipToLines   []string
	CustomerEmail string

	Items []PackingSlipItem
}

type PackingSlipItem struct {
	Description string
	SKU         string
	Qty         int64
}

func (p *PDFProvider) GeneratePackingSlip(ctx context.Context, slip PackingSlipData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Packing slip", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, slip.StoreName, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(15,
		col.New(6).Add(
			text.New("Order: "+slip.OrderNumber, props.Text{Top: 0}),
			text.New("Date: "+slip.OrderDate, props.Text{Top: 5}),
		),
		col.New(6),
	)

	shipTo := col.New(6).Add(text.New("Ship to", props.Text{Style: fontstyle.Bold}))
	shipTo.Add(text.New(slip.ShipToName, props.Text{Top: 5}))
	for i, line := range slip.ShipToLines {
		shipTo.Add(text.New(line, props.Text{Top: float64(9 + 4*i)}))
	}
	m.AddRow(float64(20+4*len(slip.ShipToLines)),
		shipTo,
		col.New(6).Add(
			text.New("Contact", props.Text{Style: fontstyle.Bold}),
			text.New(slip.CustomerEmail, props.Text{Top: 5}),
		),
	)

	m.AddRow(10,
		text.NewCol(8, "Item", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "SKU", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	var units int64
	for _, item := range slip.Items {
		units += item.Qty
		m.AddRow(8,
			text.NewCol(8, item.Description, props.Text{Size: 9}),
			text.NewCol(2, item.SKU, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", item.Qty), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Units", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(2, fmt.Sprintf("%d", units), props.Text{Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
