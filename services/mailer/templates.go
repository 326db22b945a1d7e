package mailer

// Alert email templates. Placeholders are substituted with a string replacer;
// the upper/lower variants differ in wording and accent color only.

const alertUpperTemplate = `<!DOCTYPE html>
<html>
  <body style="margin:0;padding:0;background-color:#141414;font-family:Arial,Helvetica,sans-serif;">
    <div style="max-width:600px;margin:0 auto;padding:32px 24px;color:#e5e5e5;">
      <h1 style="color:#22c55e;font-size:20px;">{{symbol}} hit your target</h1>
      <p style="font-size:15px;line-height:1.6;">
        {{company}} ({{symbol}}) is trading at <strong>${{currentPrice}}</strong>,
        above your target price of <strong>${{targetPrice}}</strong>.
      </p>
      <p style="font-size:13px;color:#9ca3af;">Triggered at {{timestamp}}</p>
      <p style="font-size:12px;color:#6b7280;">
        This alert fired once and will not repeat. Create a new alert from your
        MarketGlimpse watchlist to keep tracking {{symbol}}.
      </p>
    </div>
  </body>
</html>`

const alertLowerTemplate = `<!DOCTYPE html>
<html>
  <body style="margin:0;padding:0;background-color:#141414;font-family:Arial,Helvetica,sans-serif;">
    <div style="max-width:600px;margin:0 auto;padding:32px 24px;color:#e5e5e5;">
      <h1 style="color:#ef4444;font-size:20px;">{{symbol}} dropped to your target</h1>
      <p style="font-size:15px;line-height:1.6;">
        {{company}} ({{symbol}}) is trading at <strong>${{currentPrice}}</strong>,
        below your target price of <strong>${{targetPrice}}</strong>.
      </p>
      <p style="font-size:13px;color:#9ca3af;">Triggered at {{timestamp}}</p>
      <p style="font-size:12px;color:#6b7280;">
        This alert fired once and will not repeat. Create a new alert from your
        MarketGlimpse watchlist to keep tracking {{symbol}}.
      </p>
    </div>
  </body>
</html>`
