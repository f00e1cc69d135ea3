package excel

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/gigpay/internal/model"
)

func TestGenerateBestClientsWorkbook(t *testing.T) {
	g := NewGenerator()

	report := model.BestClientsReport{
		PeriodStart: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Clients: []model.ClientPayments{
			{ID: uuid.New(), FullName: "Ash Kethcum", Paid: 2020},
			{ID: uuid.New(), FullName: "Mr Robot", Paid: 1859},
		},
	}

	content, err := g.Generate(report)
	require.NoError(t, err)
	require.NotEmpty(t, content)

	file, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer file.Close()

	name, err := file.GetCellValue("Best clients", "A7")
	require.NoError(t, err)
	assert.Equal(t, "Ash Kethcum", name)

	total, err := file.GetCellValue("Best clients", "C9")
	require.NoError(t, err)
	assert.Equal(t, "3879.00", total)
}
