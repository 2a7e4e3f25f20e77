package adapter

import (
	"testing"

	"resi-tracker/internal/features/tracking/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestParser() *CekResiParser {
	return &CekResiParser{logger: zap.NewNop()}
}

const successPage = `<html><body>
<div id="results">
  <div class="alert alert-success">Nomor resi <b>10008447322101</b> ditemukan.</div>
  <div class="panel">
    <div id="collapseTwo" class="panel-collapse collapse in">
      <table class="table table-striped table-bordered table-hover">
        <tbody>
          <tr style="text-align: left">
            <th>Tanggal</th>
            <th>Keterangan</th>
          </tr>
          <tr>
            <td>28 Feb 2024 07:18</td>
            <td>Parcel menuju ke Hub (proses transit).</td>
          </tr>
          <tr>
            <td>27 Feb 2024 23:48</td>
            <td>Parcel sedang diproses di Hub </td>
          </tr>
        </tbody>
      </table>
    </div>
  </div>
</div>
</body></html>`

// TestCekResiParser_Parse_Success verifies the history table is extracted with its header row.
func TestCekResiParser_Parse_Success(t *testing.T) {
	outcome := newTestParser().Parse(successPage)

	require.True(t, outcome.Success)
	require.Len(t, outcome.History, 3)
	assert.Equal(t, []string{"Tanggal", "Keterangan"}, outcome.History[0])
	assert.Equal(t, []string{"28 Feb 2024 07:18", "Parcel menuju ke Hub (proses transit)."}, outcome.History[1])
	assert.Equal(t, []string{"27 Feb 2024 23:48", "Parcel sedang diproses di Hub"}, outcome.History[2])
	assert.Empty(t, outcome.Reason)
}

// TestCekResiParser_Parse_SuccessWithoutTable verifies a success banner without details fails parsing.
func TestCekResiParser_Parse_SuccessWithoutTable(t *testing.T) {
	page := `<div id="results"><div class="alert alert-success">OK</div><div id="collapseTwo"></div></div>`

	outcome := newTestParser().Parse(page)

	assert.False(t, outcome.Success)
	assert.Equal(t, "Error occurred while parsing data.", outcome.Reason)
}

// TestCekResiParser_Parse_Warning verifies the warning banner text becomes the failure reason.
func TestCekResiParser_Parse_Warning(t *testing.T) {
	page := `<div id="results">
  <div class="alert alert-warning">
    Nomor resi tidak ditemukan.
    Silakan cek kembali.
  </div>
</div>`

	outcome := newTestParser().Parse(page)

	assert.False(t, outcome.Success)
	assert.Equal(t, "Nomor resi tidak ditemukan. Silakan cek kembali.", outcome.Reason)
}

// TestCekResiParser_Parse_SuccessWinsOverWarning verifies banner precedence.
func TestCekResiParser_Parse_SuccessWinsOverWarning(t *testing.T) {
	page := `<div id="results">
  <div class="alert alert-warning">Sebagian data belum tersedia</div>
  <div class="alert alert-success">Ditemukan</div>
  <div id="collapseTwo"><table><tr><th>Tanggal</th></tr></table></div>
</div>`

	outcome := newTestParser().Parse(page)

	require.True(t, outcome.Success)
	assert.Equal(t, domain.HistoryTable{{"Tanggal"}}, outcome.History)
}

// TestCekResiParser_Parse_NoBanner verifies the not-found default.
func TestCekResiParser_Parse_NoBanner(t *testing.T) {
	page := `<div id="results"><div class="alert alert-info">Loading...</div></div>`

	outcome := newTestParser().Parse(page)

	assert.False(t, outcome.Success)
	assert.Equal(t, "Data Not Found.", outcome.Reason)
}

// TestCekResiParser_Parse_NoResults verifies a page without the result container.
func TestCekResiParser_Parse_NoResults(t *testing.T) {
	outcome := newTestParser().Parse(`<html><body><p>maintenance</p></body></html>`)

	assert.False(t, outcome.Success)
	assert.Equal(t, domain.ReasonParseError, outcome.Reason)

	outcome = newTestParser().Parse("")
	assert.Equal(t, domain.ReasonParseError, outcome.Reason)
}

// TestCekResiParser_Parse_NestedTable verifies rows of nested tables are not flattened in.
func TestCekResiParser_Parse_NestedTable(t *testing.T) {
	page := `<div id="results"><div class="alert-success">ok</div>
<div id="collapseTwo"><table>
  <tr><th>Tanggal</th><th>Keterangan</th></tr>
  <tr><td>01 Mar 2024</td><td>Diterima<table><tr><td>inner</td></tr></table></td></tr>
</table></div></div>`

	outcome := newTestParser().Parse(page)

	require.True(t, outcome.Success)
	require.Len(t, outcome.History, 2)
	assert.Equal(t, "01 Mar 2024", outcome.History[1][0])
}

// TestCekResiParser_Parse_EmptyTable verifies a table without rows is a parse failure.
func TestCekResiParser_Parse_EmptyTable(t *testing.T) {
	page := `<div id="results"><div class="alert-success">ok</div><div id="collapseTwo"><table></table></div></div>`

	outcome := newTestParser().Parse(page)

	assert.False(t, outcome.Success)
	assert.Equal(t, domain.ReasonParseError, outcome.Reason)
}
