package web

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>focusmru</title>
    <script src="https://unpkg.com/htmx.org@1.9.10"></script>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        :root {
            --bg-primary: #f5f5f5;
            --bg-secondary: white;
            --text-primary: #333;
            --text-muted: #7f8c8d;
            --border-color: #eee;
            --accent-color: #3498db;
            --heading-color: #2c3e50;
            --shadow: rgba(0,0,0,0.1);
        }

        @media (prefers-color-scheme: dark) {
            :root {
                --bg-primary: #1a1a1a;
                --bg-secondary: #2d2d2d;
                --text-primary: #e0e0e0;
                --text-muted: #a0a0a0;
                --border-color: #404040;
                --accent-color: #5dade2;
                --heading-color: #5dade2;
                --shadow: rgba(0,0,0,0.3);
            }
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: var(--bg-primary);
            padding: 20px;
            color: var(--text-primary);
        }

        h1 {
            font-size: 2rem;
            margin-bottom: 30px;
        }

        .dashboard {
            display: flex;
            gap: 20px;
            flex-wrap: wrap;
        }

        .report-box {
            flex: 1;
            min-width: 300px;
            background: var(--bg-secondary);
            border-radius: 8px;
            box-shadow: 0 2px 4px var(--shadow);
            padding: 24px;
        }

        .report-box h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            color: var(--heading-color);
            border-bottom: 2px solid var(--accent-color);
            padding-bottom: 10px;
        }

        .app-item {
            display: flex;
            justify-content: space-between;
            align-items: center;
            padding: 12px 8px;
            border-bottom: 1px solid var(--border-color);
            position: relative;
        }

        .app-item::before {
            content: '';
            position: absolute;
            left: 0;
            top: 0;
            height: 100%;
            width: var(--bar-width, 0%);
            background: var(--accent-color);
            opacity: 0.2;
            border-radius: 4px;
        }

        .app-item:last-child {
            border-bottom: none;
        }

        .app-name {
            font-weight: 500;
        }

        .app-time {
            color: var(--text-muted);
            font-size: 0.9rem;
        }

        .app-percentage, .app-confidence {
            color: var(--accent-color);
            font-weight: 600;
            display: inline-block;
            min-width: 5em;
            text-align: right;
        }

        .loading {
            color: var(--text-muted);
            font-style: italic;
        }

        .total {
            margin-top: 20px;
            padding-top: 15px;
            border-top: 2px solid var(--border-color);
            font-weight: 600;
            color: var(--heading-color);
        }
    </style>
</head>
<body>
    <h1>focusmru</h1>
    <div class="dashboard">
        <div class="report-box">
            <h2>Most Recently Used</h2>
            <div hx-get="/api/mru" hx-trigger="load, every 2s" hx-swap="innerHTML">
                <div class="loading">Loading...</div>
            </div>
        </div>

        <div class="report-box">
            <h2>Today</h2>
            <div hx-get="/api/report?period=today" hx-trigger="load, every 30s" hx-swap="innerHTML">
                <div class="loading">Loading...</div>
            </div>
        </div>

        <div class="report-box">
            <h2>This Week</h2>
            <div hx-get="/api/report?period=week" hx-trigger="load, every 30s" hx-swap="innerHTML">
                <div class="loading">Loading...</div>
            </div>
        </div>
    </div>
</body>
</html>`
