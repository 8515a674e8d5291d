package source

const tcsResultsPage = `<!DOCTYPE html>
<html><head><title>TCS Quarterly Results</title></head>
<body>
<table class="nav"><tr><td>Markets</td><td>News</td></tr></table>
<table class="mctable1">
  <tr><td colspan="4">Standalone Quarterly Results</td></tr>
  <tr><td>Quarterly Results of TCS (in Rs. Cr.)</td><td>Dec '24</td><td>Sep '24</td><td>Jun '24</td></tr>
  <tr><td>Net Sales/Income from operations</td><td>63,000.00</td><td>62,000.00</td><td>61,000.00</td></tr>
  <tr><td>Other Operating Income</td><td>--</td><td>--</td><td>--</td></tr>
  <tr><td>Total Income From Operations</td><td>63,973.00</td><td>64,259.00</td><td>62,613.00</td></tr>
  <tr><td>EXPENDITURE</td><td></td><td></td><td></td></tr>
  <tr><td>Purchase of Traded Goods</td><td>--</td><td>1,020.00</td><td>980.00</td></tr>
  <tr><td>Increase/Decrease in Stocks</td><td>(12.50)</td><td>8.00</td><td>-</td></tr>
  <tr><td>Employees Cost</td><td>35,000.00</td><td>34,500.00</td><td>34,000.00</td></tr>
  <tr><td>Depreciation</td><td>1,200.00</td><td>1,180.00</td><td>1,150.00</td></tr>
  <tr><td>Other Expenses</td><td>11,000.00</td><td>11,200.00</td><td>10,900.00</td></tr>
  <tr><td>Other Income</td><td>900.00</td><td>850.00</td><td>800.00</td></tr>
  <tr><td>Interest</td><td>150.00</td><td>140.00</td><td>130.00</td></tr>
  <tr><td>P/L Before Tax</td><td>17,523.00</td><td>17,069.00</td><td>16,253.00</td></tr>
  <tr><td>Tax</td><td>4,423.00</td><td>4,320.00</td><td>4,113.00</td></tr>
  <tr><td>Net Profit/(Loss) For the Period</td><td>13,100.00</td><td>12,749.00</td><td>12,140.00</td></tr>
  <tr><td>Basic EPS</td><td>36.20</td><td>35.23</td><td>33.55</td></tr>
  <tr><td>Diluted EPS</td><td>36.10</td><td>35.20</td><td>33.50</td></tr>
</table>
</body></html>`
